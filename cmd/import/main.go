// Command import copies a marketplace data directory into Postgres.
// The target tables must not already hold any of the copied records.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"campusmarket/internal/storage/docstore"
	"campusmarket/internal/storage/pgstore"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "overall import timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	fileCfg := docstore.Config{}
	if err := env.Parse(&fileCfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}
	pgCfg := pgstore.Config{}
	if err := env.Parse(&pgCfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	files, err := docstore.New(sugar, fileCfg)
	if err != nil {
		sugar.Fatalf("Cannot open data directory: %v", err)
	}

	snap, err := files.Snapshot(ctx)
	if err != nil {
		sugar.Fatalf("Cannot read data directory %s: %v", files.Root(), err)
	}

	db, err := pgstore.New(ctx, sugar, pgCfg, pgstore.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		sugar.Fatalf("Cannot migrate database: %v", err)
	}

	if err := db.Import(ctx, snap); err != nil {
		sugar.Fatalf("Cannot import %s: %v", files.Root(), err)
	}

	sugar.Infof("Imported %d items, %d users, %d events from %s", len(snap.Items), len(snap.Users), len(snap.Events), files.Root())
}
