// Package bootstrap opens the backing services shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	boltadapter "github.com/samirrijal/cafelog/internal/adapters/bolt"
	"github.com/samirrijal/cafelog/internal/adapters/postgres"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/pkg/config"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
)

// Store is the record and photo store selected by store.driver.
type Store struct {
	Driver string
	Cafes  ports.CafeRepository
	Photos ports.PhotoRepository
	// Ping checks the store is reachable.
	Ping func(ctx context.Context) error

	db    *postgres.DB
	close func()
}

// OpenStore opens the configured store.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverBolt:
		bs, err := boltadapter.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver: config.DriverBolt,
			Cafes:  bs.Cafes(),
			Photos: bs.Photos(),
			Ping:   func(context.Context) error { return nil },
			close:  func() { _ = bs.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return &Store{
			Driver: config.DriverPostgres,
			Cafes:  postgres.NewCafeRepo(db),
			Photos: postgres.NewPhotoRepo(db),
			Ping:   db.Ping,
			db:     db,
			close:  db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// Close releases the store.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// ReportPoolMetrics copies connection pool counters into the metrics gauges
// every interval until ctx is done. It is a no-op for the bolt store.
func (s *Store) ReportPoolMetrics(ctx context.Context, interval time.Duration) {
	if s.db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(s.db.Pool.Stat())
			case <-ctx.Done():
				slog.Debug("pool metrics reporter stopped")
				return
			}
		}
	}()
}
