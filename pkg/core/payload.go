package core

import "strings"

// Payload is the JSON body submitted to the collector for one kill.
// The collector deduplicates on DedupeKey.
type Payload struct {
	EventID       string      `json:"event_id"`
	LogLine       string      `json:"log_line"`
	GameMode      string      `json:"game_mode"`
	Player        string      `json:"player"`
	VictimName    string      `json:"victim_name"`
	VictimID      string      `json:"victim_id"`
	AttackerName  string      `json:"attacker_name"`
	AttackerID    string      `json:"attacker_id"`
	Weapon        string      `json:"weapon"`
	RawWeapon     string      `json:"raw_weapon"`
	Zone          string      `json:"zone"`
	DamageType    string      `json:"damage_type"`
	Timestamp     string      `json:"timestamp"`
	Vehicle       string      `json:"vehicle,omitempty"`
	Method        string      `json:"method"`
	KillContext   KillContext `json:"kill_context,omitempty"`
	VictimIsNPC   bool        `json:"victim_is_npc"`
	ClientVersion string      `json:"client_version,omitempty"`
}

// DedupeKey identifies a kill across submissions.
func (p Payload) DedupeKey() string {
	return strings.ToLower(p.AttackerName) + "|" + strings.ToLower(p.VictimName) + "|" + p.Timestamp
}

// MethodLabel names how a kill happened for the collector.
func MethodLabel(damageType string, ctx KillContext) string {
	switch ctx {
	case KillContextSoft:
		return "Vehicle Disabled"
	case KillContextHard:
		return "Vehicle Destroyed"
	case KillContextUnknown:
		return "Vehicle Destruction"
	}
	switch strings.ToLower(damageType) {
	case "":
		return "Unknown"
	case DamageTypeVehicleDestruction:
		return "Vehicle Destruction"
	case "bullet", "ballistic":
		return "Gunfire"
	case "explosion":
		return "Explosion"
	case "crash", "collision":
		return "Collision"
	case "suicide", "selfdestruct":
		return "Suicide"
	default:
		return damageType
	}
}
