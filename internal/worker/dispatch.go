package worker

import (
	"fmt"

	"github.com/sctracker/killfeed/internal/dispatcher"
	"github.com/sctracker/killfeed/internal/grammar"
	"github.com/sctracker/killfeed/pkg/core"
)

// RegisterHandlers registers a handler for every event kind.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, bufferSize int) {
	// Kills carry deliveries, so they are never dropped.
	d.Register(core.KindKill, m.handleKill, dispatcher.Buffered(bufferSize), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(core.KindCorrelatedKill, m.handleCorrelatedKill, dispatcher.Buffered(bufferSize), dispatcher.Blocking(), dispatcher.Logged())

	// Display events
	d.Register(core.KindDeath, m.handleDisplay, dispatcher.Buffered(bufferSize), dispatcher.Logged())
	d.Register(core.KindVehicleDestroyed, m.handleDisplay, dispatcher.Buffered(bufferSize), dispatcher.Logged())
	d.Register(core.KindEjection, m.handleDisplay, dispatcher.Buffered(bufferSize), dispatcher.Logged())
	d.Register(core.KindModeChange, m.handleDisplay, dispatcher.Logged())
}

func (m *Manager) handleKill(e core.Event) error {
	kill, ok := e.(core.KillEvent)
	if !ok {
		return fmt.Errorf("kill handler got %T", e)
	}
	player, _ := m.deps.Session.Snapshot()
	p := KillPayload(kill.Record, player, m.deps.ClientVersion)
	return m.handle(e, &p)
}

// handleCorrelatedKill submits the merged kill only when the registered
// player is its attacker. Otherwise it is a display event.
func (m *Manager) handleCorrelatedKill(e core.Event) error {
	ck, ok := e.(core.CorrelatedKillEvent)
	if !ok {
		return fmt.Errorf("correlated kill handler got %T", e)
	}
	player, _ := m.deps.Session.Snapshot()
	if core.RoleOf(player, ck.AttackerName, ck.VictimName) != core.RoleAttacker {
		return m.handle(e, nil)
	}
	p := CorrelatedPayload(ck, player, m.deps.ClientVersion)
	return m.handle(e, &p)
}

func (m *Manager) handleDisplay(e core.Event) error {
	return m.handle(e, nil)
}

// handle journals the event before submitting its payload, so the delivery
// record always finds its row.
func (m *Manager) handle(e core.Event, p *core.Payload) error {
	player, mode := m.deps.Session.Snapshot()
	entry := core.JournalEntry{
		EventID:    m.deps.NewID(),
		Kind:       e.Kind(),
		Event:      e,
		Player:     player,
		GameMode:   mode,
		RecordedAt: m.deps.Now(),
	}
	if p != nil && m.deps.Delivery != nil {
		p.EventID = entry.EventID
		entry.Payload = p
	}
	m.handled.Add(1)

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if m.deps.Journal != nil {
		if err := m.deps.Journal.RecordEvent(entry); err != nil {
			keep(fmt.Errorf("journal: %w", err))
		}
	}
	if entry.Payload != nil {
		m.deps.Delivery.Submit(*entry.Payload)
		m.submitted.Add(1)
	}
	if m.deps.Feed != nil {
		if err := m.deps.Feed.Publish(entry); err != nil {
			keep(fmt.Errorf("feed: %w", err))
		}
	}
	if m.deps.Stats != nil {
		if err := m.deps.Stats.RecordEvent(entry); err != nil {
			keep(fmt.Errorf("stats: %w", err))
		}
	}
	if m.deps.Output != nil {
		m.deps.Output(entry)
	}
	return firstErr
}

// KillPayload builds the collector payload for a kill line.
func KillPayload(rec core.KillRecord, player, clientVersion string) core.Payload {
	return core.Payload{
		LogLine:       rec.Line,
		GameMode:      rec.GameMode.Label(),
		Player:        player,
		VictimName:    rec.VictimName,
		VictimID:      rec.VictimID,
		AttackerName:  rec.AttackerName,
		AttackerID:    rec.AttackerID,
		Weapon:        rec.Weapon,
		RawWeapon:     rec.RawWeapon,
		Zone:          rec.Zone,
		DamageType:    rec.DamageType,
		Timestamp:     rec.Timestamp,
		Method:        core.MethodLabel(rec.DamageType, ""),
		VictimIsNPC:   rec.VictimIsNPC,
		ClientVersion: clientVersion,
	}
}

// CorrelatedPayload builds the collector payload for a merged vehicle kill.
// The actor death supplies the line and timestamp, the vehicle the context.
func CorrelatedPayload(ck core.CorrelatedKillEvent, player, clientVersion string) core.Payload {
	p := KillPayload(ck.Death.Record, player, clientVersion)
	p.AttackerName = ck.AttackerName
	p.AttackerID = ck.AttackerID
	p.VictimName = ck.VictimName
	p.VictimID = ck.VictimID
	p.Vehicle = ck.VehicleLabel
	p.KillContext = ck.Context
	p.Method = core.MethodLabel(ck.Death.DamageType, ck.Context)
	p.VictimIsNPC = grammar.IsNPC(ck.VictimName)
	if p.Zone == "" {
		p.Zone = grammar.FormatZone(ck.Vehicle.Zone)
	}
	return p
}
