package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/cafelog/internal/adapters/http"
	natsadapter "github.com/samirrijal/cafelog/internal/adapters/nats"
	"github.com/samirrijal/cafelog/internal/adapters/places"
	"github.com/samirrijal/cafelog/internal/adapters/valkey"
	"github.com/samirrijal/cafelog/internal/bootstrap"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/core/usecases"
	"github.com/samirrijal/cafelog/internal/pkg/config"
	"github.com/samirrijal/cafelog/internal/pkg/logging"
	"github.com/samirrijal/cafelog/internal/pkg/photo"
	"github.com/samirrijal/cafelog/internal/pkg/telemetry"
	"github.com/samirrijal/cafelog/internal/workflows"
)

func main() {
	cfg, err := config.Load("cafelog-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

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

	// Record store
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()
	store.ReportPoolMetrics(ctx, 15*time.Second)

	checks := map[string]http.CheckFunc{"store": store.Ping}

	// Cache. A nil interface keeps services cache-free.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "cafelog"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		checks["valkey"] = vc.Ping
	}

	// NATS: café events fan out to every instance's fog sessions.
	var upstream ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, fog refresh stays local", "error", err)
	} else {
		defer pub.Close()
		upstream = pub
		checks["nats"] = func(context.Context) error {
			if !pub.Connected() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}
	hub := http.NewFogHub(upstream)
	if upstream != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			unsubscribe, err := sub.SubscribeCafeEvents(ctx, hub.HandleCafeEvent)
			if err != nil {
				slog.Warn("subscribe cafe events failed", "error", err)
			} else {
				defer unsubscribe()
			}
		}
	}

	// Photo workflow
	var dispatcher ports.PhotoDispatcher
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort: cfg.Temporal.HostPort,
			Logger:   logger,
		})
		if err != nil {
			slog.Warn("temporal unavailable, photos processed inline", "error", err)
		} else {
			defer tc.Close()
			dispatcher = workflows.NewDispatcher(tc, cfg.Temporal.TaskQueue, 0)
		}
	}

	// Use cases
	photoOpts := photo.Options{
		MaxBytes:     cfg.Photos.MaxBytes,
		MaxDimension: cfg.Photos.MaxDimension,
		MaxPixels:    cfg.Photos.MaxPixels,
	}
	cafeSvc := usecases.NewCafeService(store.Cafes, store.Photos, cache, hub)
	photoSvc := usecases.NewPhotoService(store.Photos, cafeSvc, dispatcher, photoOpts)
	fogSvc := usecases.NewFogService(cafeSvc, cache, usecases.FogSettings{
		Opacity:      cfg.Fog.Opacity,
		RadiusMeters: cfg.Fog.RadiusMeters,
		Grain:        cfg.Fog.Grain,
		MaxWidth:     cfg.Fog.MaxWidth,
		MaxHeight:    cfg.Fog.MaxHeight,
		CacheTTLSecs: cfg.Fog.CacheTTLSecs,
	}, logger)

	var placeSvc *usecases.PlaceService
	if cfg.Places.APIKey != "" {
		placeSvc = usecases.NewPlaceService(places.New(places.Config{
			APIKey:      cfg.Places.APIKey,
			Language:    cfg.Places.Language,
			Region:      cfg.Places.Region,
			BiasLat:     cfg.Places.BiasLat,
			BiasLon:     cfg.Places.BiasLon,
			BiasRadiusM: cfg.Places.BiasRadiusM,
			MaxResults:  cfg.Places.MaxResults,
			Timeout:     time.Duration(cfg.Places.TimeoutSecs) * time.Second,
		}), cache, cfg.Places.CacheTTLSecs)
	} else {
		slog.Info("places.api_key not set, place search disabled")
	}

	deps := &http.Dependencies{
		Cafes:  cafeSvc,
		Photos: photoSvc,
		Fog:    fogSvc,
		Places: placeSvc,
		Hub:    hub,
		Checks: checks,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Cafelog API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "Link, ETag, Location, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", store.Driver)
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
