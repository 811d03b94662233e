package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/pkg/response"
)

// GameHandler serves the per-game read side. Every response is derived from the event log on request.
type GameHandler struct {
	svc service.StatsService
}

func NewGameHandler(svc service.StatsService) *GameHandler { return &GameHandler{svc: svc} }

func (h *GameHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/games")
	{
		g.GET("/:id/events", h.events)
		g.GET("/:id/timeline", h.timeline)
		g.GET("/:id/totals", h.totals)
	}
}

func (h *GameHandler) events(c *gin.Context) {
	gameID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", repository.DefaultPageLimit)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	res, err := h.svc.ListGameEvents(c.Request.Context(), gameID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, res)
}

func (h *GameHandler) timeline(c *gin.Context) {
	gameID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	events, err := h.svc.GameTimeline(c.Request.Context(), gameID, limit)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, events)
}

func (h *GameHandler) totals(c *gin.Context) {
	gameID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	totals, err := h.svc.GameTotals(c.Request.Context(), gameID)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, totals)
}
