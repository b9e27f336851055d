package memory

import (
	"sync"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/queue"
	"github.com/sctracker/killfeed/pkg/core"
)

// DefaultCapacity bounds the journal when the config leaves it unset.
const DefaultCapacity = 5000

// Record groups an event with its delivery outcome, once known.
type Record struct {
	Entry    core.JournalEntry
	Delivery *core.DeliveryRecord
}

// Backend keeps the most recent events in a bounded ring and, if an output
// directory is configured, exports them to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	records *queue.Queue[Record]

	mu             sync.RWMutex
	session        *core.Session
	idCounter      uint
	lastExportPath string
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Backend{
		cfg:     cfg,
		records: queue.New[Record](cfg.Capacity),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the journal when an output directory is set.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportJSON()
}

// StartSession begins a new session and clears the journal.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	session := *s
	b.session = &session
	b.records.GetAndEmpty()
	return nil
}

// EndSession records the final session state for the export.
func (b *Backend) EndSession(s core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = &s
	return nil
}

// RecordEvent appends an event, evicting the oldest when full.
func (b *Backend) RecordEvent(e core.JournalEntry) error {
	b.records.Push(Record{Entry: e})
	return nil
}

// RecordDelivery attaches a delivery outcome to its event. Outcomes for
// evicted or unknown events are ignored.
func (b *Backend) RecordDelivery(d core.DeliveryRecord) error {
	b.records.Update(
		func(r Record) bool { return r.Entry.EventID == d.EventID },
		func(r *Record) { r.Delivery = &d },
	)
	return nil
}

// Records returns a copy of the journal, oldest first.
func (b *Backend) Records() []Record {
	return b.records.Snapshot()
}

// Evicted returns how many events were dropped for capacity.
func (b *Backend) Evicted() int {
	return b.records.Dropped()
}

// Undelivered returns payloads whose delivery never reached a final answer.
func (b *Backend) Undelivered(limit int) ([]core.Payload, error) {
	var out []core.Payload
	for _, r := range b.records.Snapshot() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.Entry.Payload == nil || !resubmittable(r.Delivery) {
			continue
		}
		out = append(out, *r.Entry.Payload)
	}
	return out, nil
}

func resubmittable(d *core.DeliveryRecord) bool {
	if d == nil {
		return true
	}
	for _, o := range core.ResubmittableOutcomes {
		if d.Outcome == o {
			return true
		}
	}
	return false
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
