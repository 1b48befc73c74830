package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/samirrijal/cafelog/internal/adapters/postgres"
	"github.com/samirrijal/cafelog/internal/pkg/config"
	"github.com/samirrijal/cafelog/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down [steps]|status>")
	}

	cfg, err := config.Load("cafelog-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		log.Fatalf("store.driver is %q; migrations only apply to postgres", cfg.Store.Driver)
	}

	ms, err := migrations.All()
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		done, err := db.MigrateUp(ctx, ms)
		for _, v := range done {
			fmt.Printf("OK  %s\n", v)
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%d migrations applied", len(done))

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				log.Fatalf("steps must be a positive integer, got %q", os.Args[2])
			}
		}
		done, err := db.MigrateDown(ctx, ms, steps)
		for _, v := range done {
			fmt.Printf("REVERTED  %s\n", v)
		}
		if err != nil {
			log.Fatal(err)
		}

	case "status":
		applied, err := db.AppliedVersions(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range ms {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, m.Version)
		}

	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
