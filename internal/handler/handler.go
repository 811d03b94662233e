package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/feed"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
)

// APIV1Prefix is the base path for the public HTTP API. Tests and clients build URLs from it.
const APIV1Prefix = "/api/v1"

// Deps is everything the HTTP layer needs. Stats is required; the rest may be left zero.
type Deps struct {
	Stats          service.StatsService
	Feed           feed.Subscriber
	Health         map[string]Pinger
	Logger         zerolog.Logger
	AllowedOrigins []string
	// Closing Draining ends open feed streams, which would otherwise hold up a graceful shutdown.
	Draining <-chan struct{}
}

// Register mounts middleware and all public routes on the given engine.
func Register(r *gin.Engine, d Deps) {
	r.Use(gin.Recovery(), RequestID(), RequestLogger(d.Logger))
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  d.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
			ExposeHeaders: []string{"Content-Length", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	h := NewHealthHandler(d.Health)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	RegisterDocs(r)

	api := r.Group(APIV1Prefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		NewStatsHandler(d.Stats).Register(api)
		NewGameHandler(d.Stats).Register(api)
		NewPlayerHandler(d.Stats).Register(api)
		NewFeedHandler(d.Feed, d.Draining, d.Logger).Register(api)
	}
}
