package core

import "strings"

// UnknownGameMode is reported until a mapped game mode has been observed.
const UnknownGameMode = "Unknown"

// Position3D is a zone-local cartesian position as printed by the client.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GameMode is the last game mode seen in the log.
// Raw is the identifier as logged, Mapped the display label.
type GameMode struct {
	Raw    string `json:"raw"`
	Mapped string `json:"mapped"`
}

// Label returns the mapped label, or UnknownGameMode if none was observed.
func (g GameMode) Label() string {
	if g.Mapped == "" {
		return UnknownGameMode
	}
	return g.Mapped
}

// Destroy levels reported by vehicle destruction notices.
const (
	DestroyLevelSoft = 1 // disabled
	DestroyLevelHard = 2 // destroyed
)

// KillContext tags a correlated kill with the vehicle stage that caused it.
type KillContext string

const (
	KillContextSoft    KillContext = "soft_death"
	KillContextHard    KillContext = "hard_death"
	KillContextUnknown KillContext = "unknown_death"
)

// KillContextForLevel maps a destroy level to its kill context.
func KillContextForLevel(level int) KillContext {
	switch level {
	case DestroyLevelSoft:
		return KillContextSoft
	case DestroyLevelHard:
		return KillContextHard
	default:
		return KillContextUnknown
	}
}

// Role is the registered player's part in a kill line.
type Role string

const (
	RoleNone     Role = ""
	RoleAttacker Role = "attacker"
	RoleVictim   Role = "victim"
)

// RoleOf compares attacker and victim to player, case-insensitively.
// Attacker wins when the player appears on both sides.
func RoleOf(player, attacker, victim string) Role {
	if player == "" {
		return RoleNone
	}
	switch {
	case strings.EqualFold(attacker, player):
		return RoleAttacker
	case strings.EqualFold(victim, player):
		return RoleVictim
	default:
		return RoleNone
	}
}

// DamageTypeVehicleDestruction marks actor deaths caused by a vehicle being destroyed.
const DamageTypeVehicleDestruction = "vehicledestruction"

// IsVehicleDestruction reports whether a damage type is the vehicle destruction tag.
func IsVehicleDestruction(damageType string) bool {
	return strings.EqualFold(damageType, DamageTypeVehicleDestruction)
}
