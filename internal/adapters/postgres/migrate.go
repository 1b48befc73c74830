package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/cafelog/migrations"
)

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// AppliedVersions returns the versions recorded in schema_migrations.
func (db *DB) AppliedVersions(ctx context.Context) (map[string]bool, error) {
	if _, err := db.Pool.Exec(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// MigrateUp applies every pending migration in order, each in its own
// transaction. It returns the versions it applied.
func (db *DB) MigrateUp(ctx context.Context, ms []migrations.Migration) ([]string, error) {
	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range ms {
		if applied[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("apply %s: %w", m.Version, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}

// MigrateDown reverts up to steps applied migrations, newest first.
func (db *DB) MigrateDown(ctx context.Context, ms []migrations.Migration, steps int) ([]string, error) {
	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for i := len(ms) - 1; i >= 0 && len(done) < steps; i-- {
		m := ms[i]
		if !applied[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Down); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("revert %s: %w", m.Version, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}
