package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

// HealthHandler serves GET / — liveness only, no dependency checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadinessHandler serves GET /health: dependency pings plus the cache and
// queue stats spec §6 asks the readiness probe to surface.
type ReadinessHandler struct {
	ping  func(ctx context.Context) error
	cache ports.ResultCache
	coord ports.RenderCoordinator
}

func NewReadinessHandler(ping func(ctx context.Context) error, cache ports.ResultCache, coord ports.RenderCoordinator) *ReadinessHandler {
	return &ReadinessHandler{ping: ping, cache: cache, coord: coord}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
	Cache        ports.ResultCacheStats      `json:"cache"`
	Queue        ports.QueueStats            `json:"queue"`
}

func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, 1)
	healthy := true
	if err := h.ping(ctx); err != nil {
		deps["mongodb"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		deps["mongodb"] = dependencyStatus{Status: "ok"}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, readinessResponse{
		Status:       status,
		Dependencies: deps,
		Cache:        h.cache.Stats(),
		Queue:        h.coord.Stats(),
	})
}
