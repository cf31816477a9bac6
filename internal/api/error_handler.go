package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes. Handlers that already
	// classify a domain.Response (AvatarHandler) convert these themselves;
	// this switch is the defense-in-depth layer for anything that reaches
	// the error handler as a plain Go error instead (bind failures aside).
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrOverloaded):
		return http.StatusServiceUnavailable, "render queue overloaded"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "render timed out"
	case errors.Is(err, domain.ErrDependencyOpen):
		return http.StatusServiceUnavailable, "upstream dependency unavailable"
	case errors.Is(err, domain.ErrCacheCleared):
		return http.StatusServiceUnavailable, "render cancelled, retry"
	case errors.Is(err, domain.ErrTransient):
		return http.StatusBadGateway, "upstream error"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
