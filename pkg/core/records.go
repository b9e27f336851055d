package core

import "time"

// KillRecord is one matched actor death line.
// Timestamp is normalised to RFC 3339 when it parses, otherwise it holds the raw value and Time is zero.
type KillRecord struct {
	Line          string
	Timestamp     string
	Time          time.Time
	VictimName    string
	VictimID      string
	AttackerName  string
	AttackerID    string
	Zone          string // formatted
	RawZone       string
	Weapon        string // formatted
	RawWeapon     string
	DamageType    string
	Direction     Position3D
	VictimIsNPC   bool
	AttackerIsNPC bool
	GameMode      GameMode // mode in effect when the line was parsed
}

// VehicleDestruction is one vehicle destroy-level transition.
// ObservedAt is the wall-clock time the line was processed, not the log timestamp.
type VehicleDestruction struct {
	Line          string
	Timestamp     string
	VehicleName   string
	VehicleID     string
	Zone          string
	Position      Position3D
	DriverName    string
	DriverID      string
	FromLevel     int
	DestroyLevel  int
	DestroyerName string
	DestroyerID   string
	DamageCause   string
	ObservedAt    time.Time
}

// ActorDeath is the correlation view of a KillRecord.
type ActorDeath struct {
	Record       KillRecord
	VictimName   string
	VictimID     string
	AttackerName string
	AttackerID   string
	Weapon       string
	DamageType   string
	Zone         string // raw zone, compared against vehicle identity
	Timestamp    string
	ObservedAt   time.Time
}

// NewActorDeath builds an ActorDeath from a parsed kill line.
func NewActorDeath(rec KillRecord, observedAt time.Time) ActorDeath {
	return ActorDeath{
		Record:       rec,
		VictimName:   rec.VictimName,
		VictimID:     rec.VictimID,
		AttackerName: rec.AttackerName,
		AttackerID:   rec.AttackerID,
		Weapon:       rec.Weapon,
		DamageType:   rec.DamageType,
		Zone:         rec.RawZone,
		Timestamp:    rec.Timestamp,
		ObservedAt:   observedAt,
	}
}
