package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/bizibide/internal/adapters/elevation"
	"github.com/samirrijal/bizibide/internal/adapters/http"
	natsadapter "github.com/samirrijal/bizibide/internal/adapters/nats"
	"github.com/samirrijal/bizibide/internal/adapters/postgres"
	"github.com/samirrijal/bizibide/internal/adapters/valkey"
	"github.com/samirrijal/bizibide/internal/core/ports"
	"github.com/samirrijal/bizibide/internal/core/usecases"
	"github.com/samirrijal/bizibide/internal/pkg/config"
	"github.com/samirrijal/bizibide/internal/pkg/logging"
	"github.com/samirrijal/bizibide/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("bizibide-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	db.StartPoolMetrics(ctx, 15*time.Second)

	// Cache. The typed pointer must not reach the services when the connect
	// failed; a nil *valkey.Cache inside the interface passes nil guards.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		events = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos and providers
	rideRepo := postgres.NewRideRepo(db)
	elevationProvider := elevation.New(cfg.Elevation.BaseURL, time.Duration(cfg.Elevation.Timeout)*time.Second)

	// Use cases
	rideSvc := usecases.NewRideService(rideRepo, cacheSvc, events)
	elevationSvc := usecases.NewElevationService(rideRepo, elevationProvider, cacheSvc)

	deps := &http.Dependencies{
		Rides:          rideSvc,
		Elevation:      elevationSvc,
		NATS:           natsConn,
		DB:             db,
		Cache:          cache,
		MaxUploadBytes: cfg.Server.MaxUploadMB * 1024 * 1024,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.MaxUploadMB * 1024 * 1024,
		AppName:      "BiziBide API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.bizibide.eus",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
