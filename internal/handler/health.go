package handler

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is the minimal contract I need from a dependency to check readiness.
// I keep it local to the handler package to avoid coupling and simplify tests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readinessTimeout bounds each dependency probe so one hung backend can't stall the endpoint.
const readinessTimeout = 2 * time.Second

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler takes the named dependencies readiness depends on, e.g. "postgres" and "redis".
// Nil pingers are skipped.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	clean := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			clean[name] = p
		}
	}
	return &HealthHandler{deps: clean}
}

// Liveness responds OK if the process is up; it doesn't check dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness pings every dependency and reports each one. Any failure makes the whole probe 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := make(map[string]string, len(h.deps))
	ready := true
	for _, name := range slices.Sorted(maps.Keys(h.deps)) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		err := h.deps[name].Ping(ctx)
		cancel()
		if err != nil {
			ready = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
