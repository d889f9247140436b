package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"campusmarket/internal/server"
	"campusmarket/internal/storage"
	"campusmarket/internal/storage/docstore"
	"campusmarket/internal/storage/pgstore"
)

// backendConfig selects the storage.Store implementation
type backendConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"file"`
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	cfg := server.EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	store, err := newStore(sugar)
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	serverOpts := []server.Option{
		server.WithEnvConfig(cfg),
		server.ReadTimeout(5 * time.Second),
	}

	srv, err := server.NewServer(sugar, store, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}

func newStore(logger *zap.SugaredLogger) (storage.Store, error) {
	backend := backendConfig{}
	if err := env.Parse(&backend); err != nil {
		return nil, err
	}

	switch backend.Backend {
	case "file":
		cfg := docstore.Config{}
		if err := env.Parse(&cfg); err != nil {
			return nil, err
		}
		logger.Infof("Using data directory %s", cfg.DataDir)
		return docstore.New(logger, cfg)
	case "postgres":
		cfg := pgstore.Config{}
		if err := env.Parse(&cfg); err != nil {
			return nil, err
		}

		ctx := context.Background()
		store, err := pgstore.New(ctx, logger, cfg, pgstore.ConnectionTimeout(30*time.Second))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q, want file or postgres", backend.Backend)
	}
}
