package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sctracker/killfeed/internal/ingest"
	"github.com/sctracker/killfeed/internal/tailer"
)

// TailerSource reports where the tailer is.
type TailerSource interface {
	State() tailer.State
	Position() tailer.Position
	Lines() int64
}

// IngestSource reports per-line counters.
type IngestSource interface {
	Stats() ingest.Stats
}

// PendingSource reports buffered work, such as unmatched vehicle events or
// unflushed journal rows.
type PendingSource interface {
	Pending() int
}

// QueueSource reports dispatcher backlog.
type QueueSource interface {
	QueueDepth() int
}

// InFlightSource reports unfinished deliveries.
type InFlightSource interface {
	InFlight() int64
}

// DropSource reports messages lost on a full buffer.
type DropSource interface {
	Dropped() uint64
}

// WrittenSource reports written stats points.
type WrittenSource interface {
	Written() int64
}

// Dependencies holds all dependencies for the monitor service.
// Every source is optional.
type Dependencies struct {
	Logger     *slog.Logger
	Interval   time.Duration
	StatusPath string

	Tailer     TailerSource
	Ingest     IngestSource
	Correlator PendingSource
	Dispatcher QueueSource
	Deliveries InFlightSource
	Journal    PendingSource
	Feed       DropSource
	Stats      WrittenSource
}

// Status is one snapshot of the pipeline.
type Status struct {
	Time               time.Time     `json:"time"`
	TailerState        string        `json:"tailerState,omitempty"`
	Path               string        `json:"path,omitempty"`
	Offset             int64         `json:"offset"`
	Lines              int64         `json:"lines"`
	Ingest             *ingest.Stats `json:"ingest,omitempty"`
	PendingVehicles    int           `json:"pendingVehicles"`
	DispatcherDepth    int           `json:"dispatcherDepth"`
	DeliveriesInFlight int64         `json:"deliveriesInFlight"`
	JournalPending     int           `json:"journalPending"`
	FeedDropped        uint64        `json:"feedDropped"`
	StatsWritten       int64         `json:"statsWritten"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects a snapshot from every configured source.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now()}
	d := s.deps

	if d.Tailer != nil {
		pos := d.Tailer.Position()
		st.TailerState = d.Tailer.State().String()
		st.Path = pos.Path
		st.Offset = pos.Offset
		st.Lines = d.Tailer.Lines()
	}
	if d.Ingest != nil {
		stats := d.Ingest.Stats()
		st.Ingest = &stats
	}
	if d.Correlator != nil {
		st.PendingVehicles = d.Correlator.Pending()
	}
	if d.Dispatcher != nil {
		st.DispatcherDepth = d.Dispatcher.QueueDepth()
	}
	if d.Deliveries != nil {
		st.DeliveriesInFlight = d.Deliveries.InFlight()
	}
	if d.Journal != nil {
		st.JournalPending = d.Journal.Pending()
	}
	if d.Feed != nil {
		st.FeedDropped = d.Feed.Dropped()
	}
	if d.Stats != nil {
		st.StatsWritten = d.Stats.Written()
	}
	return st
}

// Report logs one snapshot and rewrites the status file, if any.
func (s *Service) Report() Status {
	st := s.GetStatus()

	s.deps.Logger.Info("status",
		"tailer", st.TailerState,
		"offset", st.Offset,
		"lines", st.Lines,
		"pendingVehicles", st.PendingVehicles,
		"dispatcherDepth", st.DispatcherDepth,
		"deliveriesInFlight", st.DeliveriesInFlight,
		"journalPending", st.JournalPending,
		"feedDropped", st.FeedDropped)

	if s.deps.StatusPath != "" {
		if err := writeStatusFile(s.deps.StatusPath, st); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
	return st
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
