package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/feed"
	"github.com/maxviazov/youth-hoops-tracker/pkg/response"
)

const defaultKeepAlive = 15 * time.Second

// FeedHandler streams a game's recorded and deleted events as server-sent events,
// so parents on the sideline see the box score move without polling.
type FeedHandler struct {
	sub       feed.Subscriber
	keepAlive time.Duration
	draining  <-chan struct{}
	log       zerolog.Logger
}

// NewFeedHandler streams from sub until the viewer leaves or draining is closed. A nil draining never fires.
func NewFeedHandler(sub feed.Subscriber, draining <-chan struct{}, logger zerolog.Logger) *FeedHandler {
	if sub == nil {
		sub = feed.Nop{}
	}
	l := logger.With().Str("module", "handler").Str("component", "feed").Logger()
	return &FeedHandler{sub: sub, keepAlive: defaultKeepAlive, draining: draining, log: l}
}

func (h *FeedHandler) Register(r *gin.RouterGroup) {
	r.GET("/games/:id/feed", h.stream)
}

func (h *FeedHandler) stream(c *gin.Context) {
	gameID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()
	msgs, err := h.sub.Subscribe(ctx, gameID)
	if err != nil {
		response.WriteError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	h.log.Debug().Int64("game_id", gameID).Msg("feed viewer connected")

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()
	c.Stream(func(io.Writer) bool {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent(string(msg.Type), msg)
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		case <-h.draining:
			return false
		}
	})
	h.log.Debug().Int64("game_id", gameID).Msg("feed viewer left")
}
