package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/postgres"
	"github.com/meikuraledutech/pipeline/sqlite"
)

func main() {
	cfg := LoadConfig()
	ctx := context.Background()

	var (
		store  pipeline.Store
		driver string
	)
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store, driver = postgres.New(pool), "postgres"
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		defer s.Close()
		store, driver = s, "sqlite"
	default:
		log.Printf("DATABASE_URL and SQLITE_PATH are not set; pipeline storage is disabled")
	}

	if store != nil {
		if err := store.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}

	app := newApp(cfg, store, driver)
	log.Fatal(app.Listen(":" + cfg.Port))
}
