package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/cafelog/internal/adapters/nats"
	"github.com/samirrijal/cafelog/internal/adapters/valkey"
	"github.com/samirrijal/cafelog/internal/bootstrap"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/core/usecases"
	"github.com/samirrijal/cafelog/internal/pkg/config"
	"github.com/samirrijal/cafelog/internal/pkg/logging"
	"github.com/samirrijal/cafelog/internal/pkg/photo"
	"github.com/samirrijal/cafelog/internal/workflows"
)

func main() {
	cfg, err := config.Load("cafelog-photoworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	// The bolt file is locked by the API process.
	if cfg.Store.Driver != config.DriverPostgres {
		log.Fatalf("photoworker needs store.driver=%s, got %q", config.DriverPostgres, cfg.Store.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "cafelog"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// Attached photos are café updates; API instances refresh their fog sessions.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, photo attach events not published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	cafes := usecases.NewCafeService(store.Cafes, store.Photos, cache, events)
	photos := usecases.NewPhotoService(store.Photos, cafes, nil, photo.Options{
		MaxBytes:     cfg.Photos.MaxBytes,
		MaxDimension: cfg.Photos.MaxDimension,
		MaxPixels:    cfg.Photos.MaxPixels,
	})

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.PhotoWorkflow)
	w.RegisterActivity(&workflows.PhotoActivities{Photos: photos, Cafes: cafes})

	slog.Info("photo worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
