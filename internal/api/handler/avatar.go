package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/spritestack/avatar-render/internal/api/metrics"
	"github.com/spritestack/avatar-render/internal/core/domain"
	"github.com/spritestack/avatar-render/internal/core/service"
)

// AvatarHandler serves GET /avatar/{type}/{username}.webp, the only
// request-path the Request Handler (C6) needs an HTTP front for.
type AvatarHandler struct {
	requests *service.RequestService
}

func NewAvatarHandler(requests *service.RequestService) *AvatarHandler {
	return &AvatarHandler{requests: requests}
}

// GetAvatar parses the path, delegates to the core service, and renders
// whichever of the four response shapes (§4.6) comes back.
func (h *AvatarHandler) GetAvatar(c echo.Context) error {
	rawType := c.Param("type")
	username, _ := strings.CutSuffix(c.Param("username"), ".webp")

	start := time.Now()
	resp := h.requests.GetAvatar(c.Request().Context(), username, rawType)
	outcome := observeOutcome(resp)
	viewLabel := "unknown"
	if v, ok := service.NormalizeView(rawType); ok {
		viewLabel = v.String()
	}
	metrics.RequestsTotal.WithLabelValues(viewLabel, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	switch resp.Kind {
	case domain.ResponseBytes:
		if resp.CacheHit {
			c.Response().Header().Set("X-Cache", "HIT")
		} else {
			c.Response().Header().Set("X-Cache", "MISS")
		}
		return c.Blob(http.StatusOK, resp.ContentType, resp.Bytes)

	case domain.ResponseRedirect:
		return c.Redirect(http.StatusTemporaryRedirect, resp.RedirectURL)

	case domain.ResponseNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "username not found")

	default:
		return mapDomainError(c, resp.Err, resp.RetryAfter)
	}
}

func observeOutcome(resp domain.Response) string {
	switch resp.Kind {
	case domain.ResponseBytes:
		if resp.CacheHit {
			return "cache_hit"
		}
		return "rendered"
	case domain.ResponseRedirect:
		return "redirect"
	case domain.ResponseNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func mapDomainError(c echo.Context, err error, retryAfter time.Duration) error {
	code := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		code, msg = http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrOverloaded):
		code, msg = http.StatusServiceUnavailable, "render queue overloaded"
	case errors.Is(err, domain.ErrTimeout):
		code, msg = http.StatusGatewayTimeout, "render timed out"
	case errors.Is(err, domain.ErrDependencyOpen):
		code, msg = http.StatusServiceUnavailable, "upstream dependency unavailable"
	case errors.Is(err, domain.ErrCacheCleared):
		code, msg = http.StatusServiceUnavailable, "render cancelled, retry"
	case errors.Is(err, domain.ErrTransient):
		code, msg = http.StatusBadGateway, "upstream error"
	}

	if retryAfter > 0 {
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
	}
	return echo.NewHTTPError(code, msg)
}
