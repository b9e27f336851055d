package core

import "fmt"

// Kind identifies an Event variant. It is also the dispatcher routing key.
type Kind string

const (
	KindKill             Kind = "kill"
	KindDeath            Kind = "death"
	KindVehicleDestroyed Kind = "vehicle_destroyed"
	KindEjection         Kind = "ejection"
	KindCorrelatedKill   Kind = "correlated_kill"
	KindModeChange       Kind = "mode_change"
)

// Kinds lists every Event variant.
var Kinds = []Kind{
	KindKill,
	KindDeath,
	KindVehicleDestroyed,
	KindEjection,
	KindCorrelatedKill,
	KindModeChange,
}

// Event is the closed set of records handed downstream of the parser.
type Event interface {
	Kind() Kind
	// Describe renders a plain one-line summary for logs and the live feed.
	Describe() string
	event()
}

// KillEvent is a kill scored by the registered player.
type KillEvent struct {
	Record KillRecord
}

func (KillEvent) Kind() Kind { return KindKill }
func (KillEvent) event()     {}

func (e KillEvent) Describe() string {
	return fmt.Sprintf("%s killed %s using %s in %s", e.Record.AttackerName, e.Record.VictimName, e.Record.Weapon, e.Record.Zone)
}

// DeathEvent is the registered player being killed. It is never delivered.
type DeathEvent struct {
	Record KillRecord
}

func (DeathEvent) Kind() Kind { return KindDeath }
func (DeathEvent) event()     {}

func (e DeathEvent) Describe() string {
	return fmt.Sprintf("%s was killed by %s using %s in %s", e.Record.VictimName, e.Record.AttackerName, e.Record.Weapon, e.Record.Zone)
}

// VehicleDestroyedEvent is a display-only vehicle destruction.
type VehicleDestroyedEvent struct {
	Vehicle      VehicleDestruction
	VehicleLabel string
	ZoneLabel    string
	// Expired is set when the event left the pending buffer unmatched.
	Expired bool
}

func (VehicleDestroyedEvent) Kind() Kind { return KindVehicleDestroyed }
func (VehicleDestroyedEvent) event()     {}

// Status is "disabled" for soft deaths, "destroyed" for hard deaths.
func (e VehicleDestroyedEvent) Status() string {
	return DestroyStatus(e.Vehicle.DestroyLevel)
}

func (e VehicleDestroyedEvent) Describe() string {
	return fmt.Sprintf("%s was %s by %s (%s) in %s", e.VehicleLabel, e.Status(), e.Vehicle.DestroyerName, e.Vehicle.DamageCause, e.ZoneLabel)
}

// EjectionEvent is a pilot ejecting. Ejections are never kills.
type EjectionEvent struct {
	Vehicle      VehicleDestruction
	Pilot        string
	VehicleLabel string
	ZoneLabel    string
}

func (EjectionEvent) Kind() Kind { return KindEjection }
func (EjectionEvent) event()     {}

func (e EjectionEvent) Describe() string {
	return fmt.Sprintf("%s ejected from %s in %s", e.Pilot, e.VehicleLabel, e.ZoneLabel)
}

// CorrelatedKillEvent merges a vehicle destruction with the actor death it caused.
type CorrelatedKillEvent struct {
	Vehicle      VehicleDestruction
	Death        ActorDeath
	Context      KillContext
	Score        float64
	AttackerName string
	AttackerID   string
	VictimName   string
	VictimID     string
	VehicleLabel string
}

func (CorrelatedKillEvent) Kind() Kind { return KindCorrelatedKill }
func (CorrelatedKillEvent) event()     {}

func (e CorrelatedKillEvent) Describe() string {
	return fmt.Sprintf("%s killed %s by destroying %s (%s)", e.AttackerName, e.VictimName, e.VehicleLabel, e.Context)
}

// ModeChangeEvent reports a change of mapped game mode.
type ModeChangeEvent struct {
	Previous GameMode
	Current  GameMode
}

func (ModeChangeEvent) Kind() Kind { return KindModeChange }
func (ModeChangeEvent) event()     {}

func (e ModeChangeEvent) Describe() string {
	return fmt.Sprintf("game mode changed from %s to %s", e.Previous.Label(), e.Current.Label())
}

// DestroyStatus names a destroy level for display.
func DestroyStatus(level int) string {
	switch level {
	case DestroyLevelSoft:
		return "disabled"
	case DestroyLevelHard:
		return "destroyed"
	default:
		return fmt.Sprintf("damaged (level %d)", level)
	}
}
