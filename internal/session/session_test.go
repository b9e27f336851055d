package session

import (
	"sync"
	"testing"

	"github.com/sctracker/killfeed/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestState_Defaults(t *testing.T) {
	s := New()

	assert.Equal(t, "", s.User())
	assert.Equal(t, core.UnknownGameMode, s.Mode().Label())
}

func TestState_SetUserOnce(t *testing.T) {
	s := New()

	assert.False(t, s.SetUser("  "))
	assert.True(t, s.SetUser("Bob"))
	assert.False(t, s.SetUser("Mallory"))
	assert.Equal(t, "Bob", s.User())
}

func TestState_SetMode(t *testing.T) {
	s := New()

	prev, changed, mapped := s.SetMode("EA_FreeFlight")
	assert.True(t, mapped)
	assert.True(t, changed)
	assert.Equal(t, core.UnknownGameMode, prev.Label())
	assert.Equal(t, "Free Flight", s.Mode().Mapped)

	_, changed, mapped = s.SetMode("EA_FreeFlight")
	assert.True(t, mapped)
	assert.False(t, changed)

	prev, changed, mapped = s.SetMode("EA_Mystery")
	assert.False(t, mapped)
	assert.False(t, changed)
	assert.Equal(t, "Free Flight", prev.Mapped)
	assert.Equal(t, core.GameMode{Raw: "EA_Mystery", Mapped: "Free Flight"}, s.Mode())

	prev, changed, _ = s.SetMode("SC_Default")
	assert.True(t, changed)
	assert.Equal(t, "Free Flight", prev.Mapped)
	assert.Equal(t, "Persistent Universe", s.Mode().Label())
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := New()
	s.SetUser("Bob")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetMode("EA_Duel")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				user, mode := s.Snapshot()
				assert.Equal(t, "Bob", user)
				_ = mode.Label()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "Duel", s.Mode().Mapped)
}
