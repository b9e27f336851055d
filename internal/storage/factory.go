package storage

import (
	"fmt"
	"log/slog"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/database"
	"github.com/sctracker/killfeed/internal/storage/memory"
	"github.com/sctracker/killfeed/internal/storage/postgres"
	sqlitestorage "github.com/sctracker/killfeed/internal/storage/sqlite"
)

// NewBackend creates a journal backend based on configuration.
// It returns nil for type "none".
func NewBackend(cfg config.StorageConfig, dbm *database.Manager, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		b, err := sqlitestorage.New(cfg.SQLite, cfg.FlushInterval, dbm, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "postgres":
		fallback := cfg.SQLite.Path
		if fallback == "" {
			fallback = cfg.SQLite.DumpPath
		}
		return postgres.New(postgres.Dependencies{
			DBManager:     dbm,
			Logger:        logger,
			FlushInterval: cfg.FlushInterval,
			FallbackPath:  fallback,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
