package api

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/spritestack/avatar-render/internal/api/handler"
	"github.com/spritestack/avatar-render/internal/api/middleware"
	"github.com/spritestack/avatar-render/internal/core/ports"
	"github.com/spritestack/avatar-render/internal/core/service"
)

// RouterDeps carries everything NewRouter needs to wire the avatar-render
// HTTP surface (spec §6): the request-path service plus direct access to
// the cache and coordinator for the admin endpoints, which sit outside
// RequestService's one GetAvatar operation.
type RouterDeps struct {
	Requests    *service.RequestService
	Cache       ports.ResultCache
	Coordinator ports.RenderCoordinator
	Ping        func(ctx context.Context) error
	JWTSecret   string
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with every route from
// spec §6 registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	avatarHandler := handler.NewAvatarHandler(deps.Requests)
	adminHandler := handler.NewAdminHandler(deps.Cache, deps.Coordinator)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Ping, deps.Cache, deps.Coordinator)

	e.GET("/", healthHandler.Liveness)
	e.GET("/health", readinessHandler.Readiness)

	e.GET("/avatar/:type/:username", avatarHandler.GetAvatar)

	admin := e.Group("/", middleware.Auth(deps.JWTSecret), middleware.RBAC("admin"))
	admin.GET("clear-cache", adminHandler.ClearCache)
	admin.GET("queue/stats", adminHandler.QueueStats)
	admin.POST("queue/pause", adminHandler.PauseQueue)
	admin.POST("queue/resume", adminHandler.ResumeQueue)

	return e
}
