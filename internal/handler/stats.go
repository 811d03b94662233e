package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/pkg/response"
)

// StatsHandler owns the write side: recording and removing stat events.
type StatsHandler struct {
	svc service.StatsService
}

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

func (h *StatsHandler) Register(r *gin.RouterGroup) {
	ev := r.Group("/events")
	{
		ev.POST("", h.record)
		ev.DELETE("/:id", h.delete)
	}
}

type recordEventRequest struct {
	ClientRef  string            `json:"client_ref"`
	PlayerID   int64             `json:"player_id"`
	GameID     int64             `json:"game_id"`
	Kind       model.StatKind    `json:"kind"`
	Amount     *int              `json:"amount"`
	RecordedAt *time.Time        `json:"recorded_at"`
	RecordedBy string            `json:"recorded_by"`
	Context    model.StatContext `json:"context"`
}

func (r recordEventRequest) input() model.StatEventInput {
	in := model.StatEventInput{
		ClientRef:  r.ClientRef,
		PlayerID:   r.PlayerID,
		GameID:     r.GameID,
		Kind:       r.Kind,
		Amount:     1,
		RecordedBy: r.RecordedBy,
		Context:    r.Context,
	}
	if r.Amount != nil {
		in.Amount = *r.Amount
	}
	if r.RecordedAt != nil {
		in.RecordedAt = *r.RecordedAt
	}
	return in
}

func (h *StatsHandler) record(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, service.NewInvalidInputError([]service.FieldError{{Field: "body", Message: err.Error()}}))
		return
	}
	ev, err := h.svc.RecordEvent(c.Request.Context(), req.input())
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, ev)
}

func (h *StatsHandler) delete(c *gin.Context) {
	if err := h.svc.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		response.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
