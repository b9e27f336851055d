package feed

import (
	"encoding/json"
	"time"

	"github.com/sctracker/killfeed/pkg/core"
)

// Session message types. Event messages use the event kind as their type.
const (
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
)

// Envelope wraps every message sent to the overlay.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the overlay's acknowledgement of a session message.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// SessionPayload announces which log and player the following events belong to.
type SessionPayload struct {
	LogPath       string    `json:"logPath"`
	ClientVersion string    `json:"clientVersion,omitempty"`
	Player        string    `json:"player,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt,omitzero"`
}

// EventPayload is the flat display view of one event.
type EventPayload struct {
	EventID     string           `json:"eventId"`
	Kind        core.Kind        `json:"kind"`
	Summary     string           `json:"summary"`
	Player      string           `json:"player,omitempty"`
	GameMode    string           `json:"gameMode"`
	Timestamp   string           `json:"timestamp,omitempty"`
	Attacker    string           `json:"attacker,omitempty"`
	Victim      string           `json:"victim,omitempty"`
	Weapon      string           `json:"weapon,omitempty"`
	Zone        string           `json:"zone,omitempty"`
	Vehicle     string           `json:"vehicle,omitempty"`
	Status      string           `json:"status,omitempty"`
	KillContext core.KillContext `json:"killContext,omitempty"`
	Position    *core.Position3D `json:"position,omitempty"`
	RecordedAt  time.Time        `json:"recordedAt"`
}

func sessionPayload(s core.Session) SessionPayload {
	return SessionPayload{
		LogPath:       s.LogPath,
		ClientVersion: s.ClientVersion,
		Player:        s.Player,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
	}
}

// NewEventPayload flattens a journal entry for display.
func NewEventPayload(e core.JournalEntry) EventPayload {
	p := EventPayload{
		EventID:    e.EventID,
		Kind:       e.Kind,
		Player:     e.Player,
		GameMode:   e.GameMode.Label(),
		RecordedAt: e.RecordedAt,
	}
	if e.Event == nil {
		return p
	}
	p.Kind = e.Event.Kind()
	p.Summary = e.Event.Describe()

	switch ev := e.Event.(type) {
	case core.KillEvent:
		applyRecord(&p, ev.Record)
	case core.DeathEvent:
		applyRecord(&p, ev.Record)
	case core.VehicleDestroyedEvent:
		p.Timestamp = ev.Vehicle.Timestamp
		p.Attacker = ev.Vehicle.DestroyerName
		p.Victim = ev.Vehicle.DriverName
		p.Zone = ev.ZoneLabel
		p.Vehicle = ev.VehicleLabel
		p.Status = ev.Status()
		p.Position = position(ev.Vehicle.Position)
	case core.EjectionEvent:
		p.Timestamp = ev.Vehicle.Timestamp
		p.Victim = ev.Pilot
		p.Zone = ev.ZoneLabel
		p.Vehicle = ev.VehicleLabel
		p.Position = position(ev.Vehicle.Position)
	case core.CorrelatedKillEvent:
		p.Timestamp = ev.Death.Timestamp
		p.Attacker = ev.AttackerName
		p.Victim = ev.VictimName
		p.Weapon = ev.Death.Weapon
		p.Zone = ev.Death.Record.Zone
		p.Vehicle = ev.VehicleLabel
		p.Status = core.DestroyStatus(ev.Vehicle.DestroyLevel)
		p.KillContext = ev.Context
		p.Position = position(ev.Vehicle.Position)
	case core.ModeChangeEvent:
		p.GameMode = ev.Current.Label()
	}
	return p
}

func applyRecord(p *EventPayload, r core.KillRecord) {
	p.Timestamp = r.Timestamp
	p.Attacker = r.AttackerName
	p.Victim = r.VictimName
	p.Weapon = r.Weapon
	p.Zone = r.Zone
}

func position(pos core.Position3D) *core.Position3D {
	if pos == (core.Position3D{}) {
		return nil
	}
	return &pos
}
