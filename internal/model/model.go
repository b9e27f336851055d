package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the journal schema
var DatabaseModels = []interface{}{
	&SessionRecord{},
	&EventRecord{},
}

// SessionRecord is one run of the agent against a log file.
type SessionRecord struct {
	gorm.Model
	LogPath       string        `json:"logPath" gorm:"size:512"`
	ClientVersion string        `json:"clientVersion" gorm:"size:64"`
	Player        string        `json:"player" gorm:"size:127;index:idx_session_player"`
	StartedAt     time.Time     `json:"startedAt"`
	EndedAt       time.Time     `json:"endedAt"`
	Events        []EventRecord `gorm:"foreignkey:SessionID;"`
}

func (*SessionRecord) TableName() string {
	return "sessions"
}

// EventRecord is one emitted event with its delivery state.
//
// Kill and death rows carry attacker/victim; vehicle rows carry the vehicle,
// its destroyer and position. Payload holds the exact JSON body submitted to
// the collector, if any.
type EventRecord struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	EventID   string `json:"eventId" gorm:"size:36;uniqueIndex:idx_event_event_id"`
	SessionID uint   `json:"sessionId" gorm:"index:idx_event_session_id"`
	Kind      string `json:"kind" gorm:"size:32;index:idx_event_kind"`

	Player       string  `json:"player" gorm:"size:127"`
	GameModeRaw  string  `json:"gameModeRaw" gorm:"size:64"`
	GameMode     string  `json:"gameMode" gorm:"size:64"`
	AttackerName string  `json:"attackerName" gorm:"size:127;index:idx_event_attacker"`
	AttackerID   string  `json:"attackerId" gorm:"size:32"`
	VictimName   string  `json:"victimName" gorm:"size:127;index:idx_event_victim"`
	VictimID     string  `json:"victimId" gorm:"size:32"`
	Weapon       string  `json:"weapon" gorm:"size:127"`
	DamageType   string  `json:"damageType" gorm:"size:64"`
	Zone         string  `json:"zone" gorm:"size:127"`
	Vehicle      string  `json:"vehicle" gorm:"size:127"`
	VehicleID    string  `json:"vehicleId" gorm:"size:32"`
	DestroyLevel int     `json:"destroyLevel"`
	KillContext  string  `json:"killContext" gorm:"size:32"`
	Score        float64 `json:"score"`
	Expired      bool    `json:"expired"`

	Position geom.Point `json:"position"` // zone-local vehicle position

	Timestamp  string    `json:"timestamp" gorm:"size:40"` // log timestamp, normalised when it parses
	LoggedAt   time.Time `json:"loggedAt"`
	RecordedAt time.Time `json:"recordedAt" gorm:"index:idx_event_recorded_at"`
	Summary    string    `json:"summary" gorm:"size:255"`

	Payload datatypes.JSON `json:"payload"`

	DeliveryOutcome  string    `json:"deliveryOutcome" gorm:"size:32;index:idx_event_delivery_outcome"`
	DeliveryAttempts int       `json:"deliveryAttempts"`
	DeliveryStatus   int       `json:"deliveryStatus"`
	DeliveryMessage  string    `json:"deliveryMessage" gorm:"size:255"`
	DeliveryError    string    `json:"deliveryError" gorm:"size:255"`
	DeliveredAt      time.Time `json:"deliveredAt"`
}

func (*EventRecord) TableName() string {
	return "events"
}
