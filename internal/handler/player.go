package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/pkg/response"
)

type PlayerHandler struct {
	svc service.StatsService
}

func NewPlayerHandler(svc service.StatsService) *PlayerHandler { return &PlayerHandler{svc: svc} }

func (h *PlayerHandler) Register(r *gin.RouterGroup) {
	p := r.Group("/players")
	{
		p.GET("/:id/totals", h.gameTotals)
		p.GET("/:id/summary", h.summary)
	}
}

// gameTotals: GET /players/:id/totals?game_id=N
func (h *PlayerHandler) gameTotals(c *gin.Context) {
	playerID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	gameID, err := strconv.ParseInt(c.Query("game_id"), 10, 64)
	if err != nil || gameID <= 0 {
		response.WriteError(c, service.NewInvalidInputError([]service.FieldError{{Field: "game_id", Message: "must be a valid integer > 0"}}))
		return
	}
	totals, err := h.svc.PlayerGameTotals(c.Request.Context(), playerID, gameID)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, totals)
}

// summary: GET /players/:id/summary?season=2025-26, or without season for the whole career.
func (h *PlayerHandler) summary(c *gin.Context) {
	playerID, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	var season *string
	if s, ok := c.GetQuery("season"); ok {
		season = &s
	}
	sum, err := h.svc.PlayerSeasonSummary(c.Request.Context(), playerID, season)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, sum)
}
