package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

// openStore builds the configured Store backend and runs migrations.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case "memory":
		s = store.NewMemory()
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Path)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: database_url is required for the postgres driver (ACOLYTE_STORE_DATABASE_URL)")
		}
		s, err = store.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
