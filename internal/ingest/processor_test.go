package ingest

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sctracker/killfeed/internal/correlator"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/pkg/core"
)

const (
	loginBob = `<2024-05-12T18:00:00.000Z> [Notice] <Legacy login response> [CIG-net] User Login Success - Handle[Bob] - Time[1715536800]`

	modeFreeFlight = `<2024-05-12T18:05:00.000Z> Loading GameModeRecord='EA_FreeFlight' with EGameModeId='b7ad9b5c'`
	modeDuel       = `<2024-05-12T18:06:00.000Z> Loading GameModeRecord='EA_Duel' with EGameModeId='c1'`
	modeUnknown    = `<2024-05-12T18:07:00.000Z> Loading GameModeRecord='EA_Brand_New' with EGameModeId='d2'`

	bobKillsAlice = `<2024-05-12T18:21:33.456Z> [Notice] <Actor Death> CActor::Kill: 'Alice' [1] in zone 'AEGS_Avenger_12345' ` +
		`killed by 'Bob' [2] using 'behr_pistol_01_attachment' [Class unknown] with damage type 'Bullet' ` +
		`from direction x: 0 y: 0 z: 0 [Team_ActorTech][Actor]`

	daveKillsBob = `<2024-05-12T18:22:00.000Z> [Notice] <Actor Death> CActor::Kill: 'bob' [2] in zone 'Stanton_Planet' ` +
		`killed by 'Dave' [4] using 'klwe_rifle_energy_01' [Class unknown] with damage type 'Bullet' ` +
		`from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]`

	daveKillsAlice = `<2024-05-12T18:22:05.000Z> [Notice] <Actor Death> CActor::Kill: 'Alice' [1] in zone 'Stanton_Planet' ` +
		`killed by 'Dave' [4] using 'klwe_rifle_energy_01' [Class unknown] with damage type 'Bullet' ` +
		`from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]`

	bobDestroysCutlass = `<2024-05-12T18:30:00.000Z> [Notice] <Vehicle Destruction> CVehicle::OnAdvanceDestroyLevel: ` +
		`Vehicle 'DRAK_Cutlass_998877' [998877] in zone 'OOC_Stanton_1_Hurston' ` +
		`[pos x: 1.0, y: 2.0, z: 3.0 vel x: 0, y: 0, z: 0] driven by 'Carol' [3] ` +
		`advanced from destroy level 1 to 2 caused by 'Bob' [2] with 'Combat' [Team_VehicleFeatures][Vehicle]`

	carolDiesInCutlass = `<2024-05-12T18:30:03.000Z> [Notice] <Actor Death> CActor::Kill: 'Carol' [3] in zone 'OOC_Stanton_1_Hurston' ` +
		`killed by 'Bob' [2] using 'unknown' [Class unknown] with damage type 'VehicleDestruction' ` +
		`from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]`

	lateUnrelatedKill = `<2024-05-12T18:30:30.000Z> [Notice] <Actor Death> CActor::Kill: 'Alice' [1] in zone 'Stanton_Planet' ` +
		`killed by 'Dave' [4] using 'klwe_rifle_energy_01' [Class unknown] with damage type 'Bullet' ` +
		`from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]`
)

type sink struct {
	mu     sync.Mutex
	events []core.Event
}

func (s *sink) emit(e core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *sink) all() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Event(nil), s.events...)
}

type harness struct {
	proc  *Processor
	state *session.State
	corr  *correlator.Correlator
	sink  *sink
	now   time.Time
}

func newHarness(t *testing.T, logTime bool) *harness {
	t.Helper()
	h := &harness{
		state: session.New(),
		sink:  &sink{},
		now:   time.Date(2024, 5, 12, 18, 30, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := correlator.DefaultConfig()
	cfg.HardDeathTimeout = 10 * time.Second
	corr, err := correlator.New(cfg, logger, correlator.WithClock(func() time.Time { return h.now }))
	require.NoError(t, err)
	h.corr = corr

	h.proc = New(Dependencies{
		Session:    h.state,
		Correlator: corr,
		Sink:       h.sink.emit,
		Logger:     logger,
		Now:        func() time.Time { return h.now },
		LogTime:    logTime,
	})
	return h
}

func (h *harness) correlatorEvents() []core.Event {
	var out []core.Event
	for {
		select {
		case e := <-h.corr.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestProcess_PlayerKillIsFormattedAndRouted(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	h.proc.Process(bobKillsAlice)

	events := h.sink.all()
	require.Len(t, events, 1)
	kill, ok := events[0].(core.KillEvent)
	require.True(t, ok)

	assert.Equal(t, "Aegis Avenger", kill.Record.Zone)
	assert.Equal(t, "Pistol", kill.Record.Weapon)
	assert.Equal(t, "Bob", kill.Record.AttackerName)
	assert.Equal(t, "Alice", kill.Record.VictimName)
	assert.Equal(t, core.UnknownGameMode, kill.Record.GameMode.Label())
	assert.Equal(t, core.RoleAttacker, core.RoleOf(h.state.User(), kill.Record.AttackerName, kill.Record.VictimName))
}

func TestProcess_KillWithoutRegisteredUserDiscarded(t *testing.T) {
	h := newHarness(t, false)

	h.proc.Process(bobKillsAlice)

	assert.Empty(t, h.sink.all())
	assert.Equal(t, int64(1), h.proc.Stats().Discarded)
}

func TestProcess_RoleRouting(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	h.proc.Process(daveKillsBob)
	h.proc.Process(daveKillsAlice)

	events := h.sink.all()
	require.Len(t, events, 1)
	death, ok := events[0].(core.DeathEvent)
	require.True(t, ok)
	assert.Equal(t, "Dave", death.Record.AttackerName)
	assert.Equal(t, "Energy Rifle", death.Record.Weapon)

	stats := h.proc.Stats()
	assert.Equal(t, int64(1), stats.Deaths)
	assert.Equal(t, int64(1), stats.Discarded)
}

func TestReplay_RecoversStateWithoutEmitting(t *testing.T) {
	h := newHarness(t, false)

	for _, line := range []string{loginBob, modeFreeFlight, bobKillsAlice, bobDestroysCutlass} {
		h.proc.Replay(line)
	}

	assert.Equal(t, "Bob", h.state.User())
	assert.Equal(t, "Free Flight", h.state.Mode().Label())
	assert.Empty(t, h.sink.all())
	assert.Equal(t, 0, h.corr.Pending())
	assert.Equal(t, int64(0), h.proc.Stats().Lines)
}

func TestProcess_LoginSetOnce(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Process(loginBob)
	h.proc.Process(`<2024-05-12T19:00:00Z> [Notice] <Legacy login response> [CIG-net] User Login Success - Handle[Mallory]`)

	assert.Equal(t, "Bob", h.state.User())
}

func TestProcess_GameModeChanges(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	h.proc.Process(modeFreeFlight)
	h.proc.Process(modeFreeFlight)
	h.proc.Process(modeUnknown)
	h.proc.Process(bobKillsAlice)
	h.proc.Process(modeDuel)

	events := h.sink.all()
	require.Len(t, events, 3)

	first, ok := events[0].(core.ModeChangeEvent)
	require.True(t, ok)
	assert.Equal(t, core.UnknownGameMode, first.Previous.Label())
	assert.Equal(t, "Free Flight", first.Current.Label())

	kill, ok := events[1].(core.KillEvent)
	require.True(t, ok)
	assert.Equal(t, "Free Flight", kill.Record.GameMode.Mapped)

	second, ok := events[2].(core.ModeChangeEvent)
	require.True(t, ok)
	assert.Equal(t, "Free Flight", second.Previous.Label())
	assert.Equal(t, "Duel", second.Current.Label())
}

func TestProcess_VehicleKillCorrelated(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	h.proc.Process(bobDestroysCutlass)
	assert.Equal(t, 1, h.corr.Pending())

	h.now = h.now.Add(3 * time.Second)
	h.proc.Process(carolDiesInCutlass)

	assert.Empty(t, h.sink.all(), "vehicle deaths only surface through the correlator")
	events := h.correlatorEvents()
	require.Len(t, events, 1)
	ev, ok := events[0].(core.CorrelatedKillEvent)
	require.True(t, ok)
	assert.Equal(t, core.KillContextHard, ev.Context)
	assert.Equal(t, "Bob", ev.AttackerName)
	assert.Equal(t, "Carol", ev.VictimName)
	assert.Equal(t, "Drake Cutlass", ev.VehicleLabel)
	assert.Equal(t, 0, h.corr.Pending())
}

func TestProcess_LogTimeDrivesSweep(t *testing.T) {
	h := newHarness(t, true)
	h.proc.Replay(loginBob)

	h.proc.Process(bobDestroysCutlass)
	assert.Equal(t, 1, h.corr.Pending())

	// wall clock never moves; the later log timestamp expires the entry
	h.proc.Process(lateUnrelatedKill)

	assert.Equal(t, 0, h.corr.Pending())
	events := h.correlatorEvents()
	require.Len(t, events, 1)
	ev, ok := events[0].(core.VehicleDestroyedEvent)
	require.True(t, ok)
	assert.True(t, ev.Expired)
}

func TestProcess_PanicIsContained(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	calls := 0
	h.proc.deps.Sink = func(core.Event) {
		calls++
		if calls == 1 {
			panic("formatter exploded")
		}
	}

	assert.NotPanics(t, func() { h.proc.Process(bobKillsAlice) })
	assert.NotPanics(t, func() { h.proc.Process(bobKillsAlice) })

	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(1), h.proc.Stats().Failures)
}

func TestProcess_NoiseIgnored(t *testing.T) {
	h := newHarness(t, false)
	h.proc.Replay(loginBob)

	for _, line := range []string{"", "<2024-05-12T18:00:00Z> [Notice] <Something Else> nothing to see", "\x00\xff"} {
		h.proc.Process(line)
	}

	assert.Empty(t, h.sink.all())
	assert.Equal(t, int64(3), h.proc.Stats().Lines)
	assert.Equal(t, int64(0), h.proc.Stats().Failures)
}
