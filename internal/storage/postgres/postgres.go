// Package postgres implements the storage.Backend interface on PostgreSQL.
// If the server cannot be reached and a fallback path is configured, the
// journal is written to a local SQLite file instead.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sctracker/killfeed/internal/database"
	gormstorage "github.com/sctracker/killfeed/internal/storage/gorm"
	"github.com/sctracker/killfeed/pkg/core"
)

var errNotInitialized = errors.New("postgres journal not initialized")

// Dependencies holds all dependencies for the Postgres journal.
type Dependencies struct {
	DBManager     *database.Manager
	Logger        *slog.Logger
	FlushInterval time.Duration
	// FallbackPath is the SQLite file used when Postgres is unusable. Empty disables the fallback.
	FallbackPath string
}

// Backend connects on Init and delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	deps  Dependencies
	local bool
}

// New creates a new Postgres journal. No connection is made until Init.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	db, local, err := b.deps.DBManager.Connect(b.deps.FallbackPath)
	if err != nil {
		return err
	}
	b.local = local
	if local {
		b.deps.Logger.Warn("postgres unavailable, journaling to local SQLite", "path", b.deps.FallbackPath)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.deps.Logger,
		FlushInterval: b.deps.FlushInterval,
		Migrate:       b.deps.DBManager.Setup,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to init journal: %w", err)
	}
	return nil
}

// Local reports whether Init fell back to SQLite.
func (b *Backend) Local() bool {
	return b.local
}

// Close flushes and stops the writer. It is a no-op before Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

// StartSession records the session. Init must have succeeded.
func (b *Backend) StartSession(s *core.Session) error {
	if b.Backend == nil {
		return errNotInitialized
	}
	return b.Backend.StartSession(s)
}

// RecordEvent queues an event. Init must have succeeded.
func (b *Backend) RecordEvent(e core.JournalEntry) error {
	if b.Backend == nil {
		return errNotInitialized
	}
	return b.Backend.RecordEvent(e)
}

// RecordDelivery queues a delivery update. Init must have succeeded.
func (b *Backend) RecordDelivery(d core.DeliveryRecord) error {
	if b.Backend == nil {
		return errNotInitialized
	}
	return b.Backend.RecordDelivery(d)
}

// EndSession stamps the session end. Init must have succeeded.
func (b *Backend) EndSession(s core.Session) error {
	if b.Backend == nil {
		return errNotInitialized
	}
	return b.Backend.EndSession(s)
}

// Undelivered returns payloads to resubmit. Init must have succeeded.
func (b *Backend) Undelivered(limit int) ([]core.Payload, error) {
	if b.Backend == nil {
		return nil, errNotInitialized
	}
	return b.Backend.Undelivered(limit)
}
