// Package ingest turns log lines into session updates, correlator input and
// kill/death events. One Processor serves one tailer.
package ingest

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/sctracker/killfeed/internal/grammar"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/internal/util"
	"github.com/sctracker/killfeed/pkg/core"
)

// Correlator is the part of the vehicle correlator the processor drives.
type Correlator interface {
	HandleVehicle(v core.VehicleDestruction)
	HandleActorDeath(d core.ActorDeath) (core.CorrelatedKillEvent, bool)
	SweepAt(now time.Time) int
}

// Sink receives the events the processor emits directly. Correlator output
// travels on the correlator's own channel.
type Sink func(core.Event)

// Dependencies holds everything a Processor needs.
type Dependencies struct {
	Session    *session.State
	Correlator Correlator
	Sink       Sink
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// LogTime stamps observation times from log timestamps instead of the
	// wall clock. Offline scans use it so correlation windows follow the log.
	LogTime bool
}

// Stats counts lines by outcome.
type Stats struct {
	Lines     int64
	Kills     int64
	Deaths    int64
	Vehicles  int64
	Discarded int64
	Failures  int64
}

// Processor applies the line grammar in priority order.
type Processor struct {
	deps Dependencies

	lastLogTime time.Time

	lines     atomic.Int64
	kills     atomic.Int64
	deaths    atomic.Int64
	vehicles  atomic.Int64
	discarded atomic.Int64
	failures  atomic.Int64
}

// New creates a Processor.
func New(deps Dependencies) *Processor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sink == nil {
		deps.Sink = func(core.Event) {}
	}
	return &Processor{deps: deps}
}

// Stats returns the line counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Lines:     p.lines.Load(),
		Kills:     p.kills.Load(),
		Deaths:    p.deaths.Load(),
		Vehicles:  p.vehicles.Load(),
		Discarded: p.discarded.Load(),
		Failures:  p.failures.Load(),
	}
}

// Replay handles a historical line. Only login and game mode lines are
// applied and nothing is emitted.
func (p *Processor) Replay(line string) {
	defer p.recoverLine(line)

	if handle, ok := grammar.ParseLegacyLogin(line); ok {
		p.setUser(handle)
		return
	}
	if raw, ok := grammar.ParseGameMode(line); ok {
		p.setMode(raw, false)
	}
}

// Process handles a live line. A failure is logged and never escapes.
func (p *Processor) Process(line string) {
	defer p.recoverLine(line)
	p.lines.Add(1)

	switch {
	case p.processLogin(line):
	case p.processMode(line):
	case p.processVehicle(line):
	case p.processKill(line):
	}

	p.deps.Correlator.SweepAt(p.now())
}

func (p *Processor) processLogin(line string) bool {
	handle, ok := grammar.ParseLegacyLogin(line)
	if ok {
		p.setUser(handle)
	}
	return ok
}

func (p *Processor) processMode(line string) bool {
	raw, ok := grammar.ParseGameMode(line)
	if ok {
		p.setMode(raw, true)
	}
	return ok
}

func (p *Processor) processVehicle(line string) bool {
	v, ok := grammar.ParseVehicleDestruction(line)
	if !ok {
		return false
	}
	_, t := grammar.NormalizeTimestamp(v.Timestamp)
	v.ObservedAt = p.observe(t)
	p.vehicles.Add(1)
	p.deps.Correlator.HandleVehicle(v)
	return true
}

func (p *Processor) processKill(line string) bool {
	rec, ok := grammar.ParseKill(line)
	if !ok {
		return false
	}

	user, mode := p.deps.Session.Snapshot()
	if mode.Mapped == "" {
		mode.Mapped = core.UnknownGameMode
	}
	rec.GameMode = mode

	if core.IsVehicleDestruction(rec.DamageType) {
		p.deps.Correlator.HandleActorDeath(core.NewActorDeath(rec, p.observe(rec.Time)))
		return true
	}
	p.observe(rec.Time)

	if user == "" {
		p.discarded.Add(1)
		return true
	}

	switch core.RoleOf(user, rec.AttackerName, rec.VictimName) {
	case core.RoleAttacker:
		p.kills.Add(1)
		p.deps.Sink(core.KillEvent{Record: rec})
	case core.RoleVictim:
		p.deaths.Add(1)
		p.deps.Sink(core.DeathEvent{Record: rec})
	default:
		p.discarded.Add(1)
	}
	return true
}

func (p *Processor) setUser(handle string) {
	if p.deps.Session.SetUser(handle) {
		p.deps.Logger.Info("player detected", "player", handle)
	}
}

func (p *Processor) setMode(raw string, emit bool) {
	prev, changed, mapped := p.deps.Session.SetMode(raw)
	if !mapped {
		p.deps.Logger.Warn("unmapped game mode, keeping previous", "raw", raw, "gameMode", prev.Label())
		return
	}
	if !changed {
		return
	}

	current := p.deps.Session.Mode()
	p.deps.Logger.Info("game mode changed", "from", prev.Label(), "to", current.Label(), "raw", raw)
	if emit {
		p.deps.Sink(core.ModeChangeEvent{Previous: prev, Current: current})
	}
}

// observe returns the observation time for a line logged at t.
func (p *Processor) observe(t time.Time) time.Time {
	if !p.deps.LogTime {
		return p.deps.Now()
	}
	if !t.IsZero() && t.After(p.lastLogTime) {
		p.lastLogTime = t
	}
	return p.now()
}

// now is the sweep reference time.
func (p *Processor) now() time.Time {
	if p.deps.LogTime && !p.lastLogTime.IsZero() {
		return p.lastLogTime
	}
	return p.deps.Now()
}

func (p *Processor) recoverLine(line string) {
	if r := recover(); r != nil {
		p.failures.Add(1)
		p.deps.Logger.Error("line processing failed",
			"error", fmt.Sprint(r),
			"line", util.Truncate(line, 256),
			"stack", string(debug.Stack()))
	}
}

