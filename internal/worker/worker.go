// Package worker handles every event kind the dispatcher routes: it builds
// collector payloads, submits kills for delivery and fans events out to the
// journal, the live feed and the stats sink.
package worker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sctracker/killfeed/internal/delivery"
	"github.com/sctracker/killfeed/internal/storage"
	"github.com/sctracker/killfeed/pkg/core"
)

// Submitter accepts payloads for background delivery.
type Submitter interface {
	Submit(p core.Payload)
}

// Publisher forwards display events to the live feed.
type Publisher interface {
	Publish(e core.JournalEntry) error
}

// StatsRecorder writes combat statistics.
type StatsRecorder interface {
	RecordEvent(e core.JournalEntry) error
}

// SessionSource reports the registered player and current game mode.
type SessionSource interface {
	Snapshot() (string, core.GameMode)
}

// Dependencies holds all dependencies for the worker manager.
// Every sink is optional; a nil Delivery means nothing is submitted.
type Dependencies struct {
	Session       SessionSource
	Delivery      Submitter
	Journal       storage.Backend
	Feed          Publisher
	Stats         StatsRecorder
	Logger        *slog.Logger
	ClientVersion string
	// Output, if set, sees every entry after the sinks. Offline scans print from it.
	Output func(core.JournalEntry)
	// NewID defaults to random UUIDs.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Counters tallies handled events.
type Counters struct {
	Handled   int64
	Submitted int64
	Failed    int64
}

// Manager routes events to the configured sinks.
type Manager struct {
	deps Dependencies

	handled   atomic.Int64
	submitted atomic.Int64
	failed    atomic.Int64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{deps: deps}
}

// Counters returns the running totals.
func (m *Manager) Counters() Counters {
	return Counters{
		Handled:   m.handled.Load(),
		Submitted: m.submitted.Load(),
		Failed:    m.failed.Load(),
	}
}

// HandleResult journals the final state of a delivery. Pass it to
// delivery.WithResultHandler.
func (m *Manager) HandleResult(r delivery.Result) {
	if !r.Success() {
		m.failed.Add(1)
	}
	if m.deps.Journal == nil {
		return
	}

	rec := core.DeliveryRecord{
		EventID:    r.Payload.EventID,
		Outcome:    r.Label(),
		Attempts:   r.Attempts,
		StatusCode: r.StatusCode,
		Message:    r.Message,
		FinishedAt: m.deps.Now(),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if err := m.deps.Journal.RecordDelivery(rec); err != nil {
		m.deps.Logger.Error("failed to journal delivery", "eventId", rec.EventID, "error", err)
	}
}
