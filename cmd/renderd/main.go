// Command renderd starts the avatar rendering service's HTTP server:
// config load, dependency wiring, and graceful shutdown.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/spritestack/avatar-render/internal/api"
	apimetrics "github.com/spritestack/avatar-render/internal/api/metrics"
	"github.com/spritestack/avatar-render/internal/core/service"
	"github.com/spritestack/avatar-render/internal/infrastructure/breaker"
	"github.com/spritestack/avatar-render/internal/infrastructure/compositor"
	"github.com/spritestack/avatar-render/internal/infrastructure/config"
	"github.com/spritestack/avatar-render/internal/infrastructure/defaultasset"
	"github.com/spritestack/avatar-render/internal/infrastructure/objectstore"
	"github.com/spritestack/avatar-render/internal/infrastructure/partcache"
	"github.com/spritestack/avatar-render/internal/infrastructure/render"
	"github.com/spritestack/avatar-render/internal/infrastructure/resultcache"
	"github.com/spritestack/avatar-render/internal/infrastructure/userstore"
	"github.com/spritestack/avatar-render/pkg/logger"
)

// shutdownDrain is the window spec §5 gives in-flight renders to finish
// before the process forces exit.
const shutdownDrain = 30 * time.Second

// statsPollInterval drives the gauge that mirrors circuit-breaker state
// into Prometheus (kept out of internal/infrastructure so infra never
// imports the API layer's metrics package).
const statsPollInterval = 5 * time.Second

func main() {
	slogLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.Load(slogLogger)

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})
	log.Info().Str("env", cfg.Env).Msg("renderd: starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDB, err := userstore.Connect(ctx, userstore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("renderd: mongo connect failed")
	}
	defer mongoClient.Disconnect(context.Background())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	defer redisClient.Close()

	users := userstore.New(mongoDB)

	cdnBreaker := breaker.New(5, 60*time.Second)
	objectBreaker := breaker.New(5, 60*time.Second)

	objects, err := objectstore.New(log, objectstore.Config{
		Endpoint: cfg.Space.Endpoint,
		SpaceID:  cfg.Space.SpaceID,
		SpaceKey: cfg.Space.SpaceKey,
		Bucket:   cfg.Space.Bucket,
		UseSSL:   cfg.Space.UseSSL,
	}, objectBreaker)
	if err != nil {
		log.Fatal().Err(err).Msg("renderd: object store init failed")
	}

	parts := partcache.New(log, cfg.Space.CDNEndpoint, cfg.CacheDir+"/parts", cdnBreaker)
	cache := resultcache.New(log, cfg.CacheDir)
	defer cache.Close()

	comp := compositor.New()
	pipeline := render.NewPipeline(parts, comp, cache, objects, users, cfg.BaseAssetDir, log)

	sink := render.NewEventSink(prometheus.DefaultRegisterer)
	presence := render.NewPresenceHint(redisClient)
	coordinator := render.New(pipeline, sink, log,
		render.WithWorkers(cfg.Render.Workers),
		render.WithCapacity(cfg.Render.QueueCapacity),
		render.WithPresenceHint(presence),
	)
	defer coordinator.Close()

	fingerprints := service.NewFingerprintService()
	defaults := defaultasset.New()
	requests := service.NewRequestService(users, fingerprints, cache, objects, coordinator, defaults, log)

	go pollDependencyGauges(ctx, objectBreaker, cdnBreaker)

	e := api.NewRouter(api.RouterDeps{
		Requests:    requests,
		Cache:       cache,
		Coordinator: coordinator,
		Ping:        func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		JWTSecret:   cfg.JWTSecret,
		Log:         log,
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: e}

	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("renderd: server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("renderd: listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("renderd: shutdown signal received, draining")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("renderd: forced shutdown after drain window")
	}
	cancel()
}

// pollDependencyGauges mirrors breaker state into the circuit-breaker
// gauge on a fixed interval, since the breakers themselves have no
// subscriber mechanism (spec §7's two-breaker design, observed from the
// outside instead of instrumented from inside).
func pollDependencyGauges(ctx context.Context, objectBreaker, cdnBreaker *breaker.Breaker) {
	ticker := time.NewTicker(statsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			apimetrics.CircuitBreakerState.WithLabelValues("object_store").Set(breakerStateValue(objectBreaker))
			apimetrics.CircuitBreakerState.WithLabelValues("part_cdn").Set(breakerStateValue(cdnBreaker))
		}
	}
}

func breakerStateValue(b *breaker.Breaker) float64 {
	switch b.String() {
	case breaker.StateHalfOpen:
		return 1
	case breaker.StateOpen:
		return 2
	default:
		return 0
	}
}
