package storage

import "github.com/sctracker/killfeed/pkg/core"

// Backend is the interface all journal implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns the ID)
	StartSession(s *core.Session) error
	EndSession(s core.Session) error

	// Event recording
	RecordEvent(e core.JournalEntry) error
	RecordDelivery(d core.DeliveryRecord) error
}

// Resubmitter is an optional interface for backends that can return the
// payloads whose delivery did not reach a final answer.
type Resubmitter interface {
	Undelivered(limit int) ([]core.Payload, error)
}
