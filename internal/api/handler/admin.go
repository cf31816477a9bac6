package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

// AdminHandler serves the operator-facing control surface: cache/queue
// purge and pause/resume of the Render Coordinator (spec §6).
type AdminHandler struct {
	cache       ports.ResultCache
	coordinator ports.RenderCoordinator
}

func NewAdminHandler(cache ports.ResultCache, coordinator ports.RenderCoordinator) *AdminHandler {
	return &AdminHandler{cache: cache, coordinator: coordinator}
}

type clearCacheResponse struct {
	CacheCleared bool `json:"cache_cleared"`
	QueuePurged  bool `json:"queue_purged"`
}

// ClearCache purges the memory and disk result-cache tiers and cancels
// every queued/in-flight render job (GET /clear-cache).
func (h *AdminHandler) ClearCache(c echo.Context) error {
	resp := clearCacheResponse{}

	if err := h.cache.Purge(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to purge result cache")
	}
	resp.CacheCleared = true

	h.coordinator.Purge()
	resp.QueuePurged = true

	return c.JSON(http.StatusOK, resp)
}

// QueueStats reports the Render Coordinator's current counters
// (GET /queue/stats).
func (h *AdminHandler) QueueStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.coordinator.Stats())
}

type queueControlResponse struct {
	Paused bool `json:"paused"`
}

// PauseQueue stops the worker pool from pulling new jobs (POST /queue/pause).
func (h *AdminHandler) PauseQueue(c echo.Context) error {
	h.coordinator.Pause()
	return c.JSON(http.StatusOK, queueControlResponse{Paused: true})
}

// ResumeQueue resumes the worker pool (POST /queue/resume).
func (h *AdminHandler) ResumeQueue(c echo.Context) error {
	h.coordinator.Resume()
	return c.JSON(http.StatusOK, queueControlResponse{Paused: false})
}
