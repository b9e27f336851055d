// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend. With no file path the database lives in memory
// and is dumped to disk periodically via VACUUM INTO, and once more on Close.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/database"
	gormstorage "github.com/sctracker/killfeed/internal/storage/gorm"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	dbm      *database.Manager
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New opens the SQLite database described by cfg.
func New(cfg config.SQLiteConfig, flushInterval time.Duration, dbm *database.Manager, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := dbm.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        logger,
		FlushInterval: flushInterval,
		Migrate:       dbm.Setup,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		dbm:      dbm,
		log:      logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (b *Backend) dumps() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.dumps() && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// Close stops the dump goroutine, flushes the GORM backend and writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	<-b.done

	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.dumps() {
		if err := b.dbm.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
			return fmt.Errorf("final dump: %w", err)
		}
	}

	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Backend.Flush(); err != nil {
				b.log.Warn("journal flush before dump failed", "error", err)
			}
			if err := b.dbm.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
				b.log.Error("Error dumping journal to disk", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
