// Package gormstorage implements the storage.Backend interface on GORM with
// in-memory write queues drained by a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/internal/model/convert"
	"github.com/sctracker/killfeed/internal/queue"
	"github.com/sctracker/killfeed/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	// Migrate runs the schema migration. Defaults to AutoMigrate of model.DatabaseModels.
	Migrate func(db *gorm.DB) error
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps       Dependencies
	events     *queue.Queue[model.EventRecord]
	deliveries *queue.Queue[core.DeliveryRecord]
	sessionID  atomic.Uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = 2 * time.Second
	}
	return &Backend{
		deps:       deps,
		events:     queue.New[model.EventRecord](0),
		deliveries: queue.New[core.DeliveryRecord](0),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("no database configured")
	}

	migrate := b.deps.Migrate
	if migrate == nil {
		migrate = func(db *gorm.DB) error { return db.AutoMigrate(model.DatabaseModels...) }
	}
	if err := migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	return b.Flush()
}

// StartSession inserts the session row synchronously so its ID is known.
func (b *Backend) StartSession(s *core.Session) error {
	row := model.SessionRecord{
		LogPath:       s.LogPath,
		ClientVersion: s.ClientVersion,
		Player:        s.Player,
		StartedAt:     s.StartedAt,
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	return nil
}

// EndSession stamps the end time and the player detected during the run.
func (b *Backend) EndSession(s core.Session) error {
	if s.ID == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.SessionRecord{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{"ended_at": s.EndedAt, "player": s.Player}).Error
	if err != nil {
		return fmt.Errorf("failed to end session %d: %w", s.ID, err)
	}
	return nil
}

// RecordEvent converts an entry and queues it.
func (b *Backend) RecordEvent(e core.JournalEntry) error {
	b.events.Push(convert.EntryToRecord(e))
	return nil
}

// RecordDelivery queues a delivery update. It is applied after the event
// rows queued before it.
func (b *Backend) RecordDelivery(d core.DeliveryRecord) error {
	b.deliveries.Push(d)
	return nil
}

// Pending returns the number of queued writes.
func (b *Backend) Pending() int {
	return b.events.Len() + b.deliveries.Len()
}

// Undelivered returns payloads whose delivery never reached a final answer,
// oldest first.
func (b *Backend) Undelivered(limit int) ([]core.Payload, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	q := b.deps.DB.
		Where("payload IS NOT NULL").
		Where("delivery_outcome IN ? OR delivery_outcome IS NULL", core.ResubmittableOutcomes).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []model.EventRecord
	err := q.Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query undelivered events: %w", err)
	}

	payloads := make([]core.Payload, 0, len(rows))
	for _, row := range rows {
		p, err := convert.RecordPayload(row)
		if err != nil {
			b.deps.Logger.Warn("skipping journal row", "eventId", row.EventID, "error", err)
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// Flush writes all queued events, then all queued delivery updates.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	sessionID := uint(b.sessionID.Load())
	err := writeQueue(b.deps.DB, b.events, "events", b.deps.Logger, func(items []model.EventRecord) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	if err != nil {
		return err
	}
	return b.writeDeliveries()
}

func (b *Backend) writeDeliveries() error {
	items := b.deliveries.GetAndEmpty()
	for i, d := range items {
		res := b.deps.DB.Model(&model.EventRecord{}).
			Where("event_id = ?", d.EventID).
			Updates(convert.DeliveryColumns(d))
		if res.Error != nil {
			b.deps.Logger.Error("Error updating delivery", "eventId", d.EventID, "error", res.Error)
			b.deliveries.Push(items[i:]...)
			return fmt.Errorf("failed to update delivery of %s: %w", d.EventID, res.Error)
		}
		if res.RowsAffected == 0 {
			b.deps.Logger.Debug("delivery for unknown event dropped", "eventId", d.EventID)
		}
	}
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed items go back onto the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) error {
	if q.Len() == 0 {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains the queues into the DB.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Warn("journal flush failed, will retry", "error", err)
			}
		}
	}
}
