package core

import "time"

// JournalEntry is one emitted event as kept by the local journal.
// Payload is set only for events that were submitted to the collector.
type JournalEntry struct {
	EventID    string
	Kind       Kind
	Event      Event
	Payload    *Payload
	Player     string
	GameMode   GameMode
	RecordedAt time.Time
}

// DeliveryRecord is the final delivery state of a journaled payload.
type DeliveryRecord struct {
	EventID    string
	Outcome    string
	Attempts   int
	StatusCode int
	Message    string
	Error      string
	FinishedAt time.Time
}

// Session is one run of the agent against a log file. ID is assigned by the journal.
type Session struct {
	ID            uint
	LogPath       string
	ClientVersion string
	Player        string
	StartedAt     time.Time
	EndedAt       time.Time
}

// Delivery labels that may succeed when the payload is submitted again.
// An empty label means the run ended before the delivery finished.
var ResubmittableOutcomes = []string{"exhausted", "stopped", ""}
