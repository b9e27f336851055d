// Package session holds the state recovered from the log that every
// downstream consumer reads: the registered player and the current game mode.
package session

import (
	"strings"
	"sync"

	"github.com/sctracker/killfeed/internal/grammar"
	"github.com/sctracker/killfeed/pkg/core"
)

// State holds the registered player and game mode.
// Only the ingest path writes to it.
type State struct {
	mu   sync.RWMutex
	user string
	mode core.GameMode
}

// New creates a State with no registered player and an unknown game mode.
func New() *State {
	return &State{}
}

// User returns the registered player handle, or "" before login was seen.
func (s *State) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser registers the player handle. The first handle wins for the life of
// the process; later calls return false and leave it unchanged.
func (s *State) SetUser(handle string) bool {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != "" {
		return false
	}
	s.user = handle
	return true
}

// Mode returns the game mode in effect.
func (s *State) Mode() core.GameMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode records a raw game mode identifier. The raw value is always kept.
// An unmapped identifier leaves the mapped label untouched and reports
// mapped=false. changed is true only when the mapped label differs from the
// previous one.
func (s *State) SetMode(raw string) (prev core.GameMode, changed, mapped bool) {
	label, mapped := grammar.MapGameMode(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.mode
	s.mode.Raw = raw
	if !mapped {
		return prev, false, false
	}
	changed = prev.Mapped != label
	s.mode.Mapped = label
	return prev, changed, true
}

// Snapshot returns the player and game mode under a single lock.
func (s *State) Snapshot() (string, core.GameMode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.mode
}
