package convert

import (
	"testing"
	"time"

	"github.com/sctracker/killfeed/internal/geo"
	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordedAt = time.Date(2024, 5, 12, 18, 21, 34, 0, time.UTC)

func killRecord() core.KillRecord {
	return core.KillRecord{
		Timestamp:    "2024-05-12T18:21:33.456Z",
		Time:         time.Date(2024, 5, 12, 18, 21, 33, 456e6, time.UTC),
		VictimName:   "Alice",
		VictimID:     "200",
		AttackerName: "Bob",
		AttackerID:   "100",
		Zone:         "Aegis Avenger",
		Weapon:       "S3 Laser Repeater",
		DamageType:   "Bullet",
	}
}

func vehicle() core.VehicleDestruction {
	return core.VehicleDestruction{
		Timestamp:     "2024-05-12T18:22:00.000Z",
		VehicleName:   "AEGS_Gladius_123",
		VehicleID:     "123",
		Position:      core.Position3D{X: 1, Y: 2, Z: 3},
		DriverName:    "Alice",
		DriverID:      "200",
		FromLevel:     0,
		DestroyLevel:  core.DestroyLevelHard,
		DestroyerName: "Bob",
		DestroyerID:   "100",
		DamageCause:   "Combat",
	}
}

func TestEntryToRecord_Kill(t *testing.T) {
	p := core.Payload{EventID: "e1", AttackerName: "Bob", VictimName: "Alice", Method: "Gunfire"}
	entry := core.JournalEntry{
		EventID:    "e1",
		Kind:       core.KindKill,
		Event:      core.KillEvent{Record: killRecord()},
		Payload:    &p,
		Player:     "Bob",
		GameMode:   core.GameMode{Raw: "EA_FreeFlight", Mapped: "Arena Commander: Free Flight"},
		RecordedAt: recordedAt,
	}

	r := EntryToRecord(entry)

	assert.Equal(t, "e1", r.EventID)
	assert.Equal(t, "kill", r.Kind)
	assert.Equal(t, "Bob", r.Player)
	assert.Equal(t, "EA_FreeFlight", r.GameModeRaw)
	assert.Equal(t, "Arena Commander: Free Flight", r.GameMode)
	assert.Equal(t, "Bob", r.AttackerName)
	assert.Equal(t, "Alice", r.VictimName)
	assert.Equal(t, "S3 Laser Repeater", r.Weapon)
	assert.Equal(t, "2024-05-12T18:21:33.456Z", r.Timestamp)
	assert.Equal(t, killRecord().Time, r.LoggedAt)
	assert.Equal(t, recordedAt, r.RecordedAt)
	assert.Equal(t, "Bob killed Alice using S3 Laser Repeater in Aegis Avenger", r.Summary)
	assert.True(t, r.Position.IsEmpty())

	decoded, err := RecordPayload(r)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEntryToRecord_UnknownModeLabel(t *testing.T) {
	r := EntryToRecord(core.JournalEntry{
		Kind:  core.KindDeath,
		Event: core.DeathEvent{Record: killRecord()},
	})

	assert.Equal(t, core.UnknownGameMode, r.GameMode)
	assert.Nil(t, r.Payload)
}

func TestEntryToRecord_Vehicle(t *testing.T) {
	ev := core.VehicleDestroyedEvent{
		Vehicle:      vehicle(),
		VehicleLabel: "Aegis Gladius",
		ZoneLabel:    "Stanton",
		Expired:      true,
	}

	r := EntryToRecord(core.JournalEntry{Kind: ev.Kind(), Event: ev})

	assert.Equal(t, "vehicle_destroyed", r.Kind)
	assert.Equal(t, "Aegis Gladius", r.Vehicle)
	assert.Equal(t, "123", r.VehicleID)
	assert.Equal(t, "Bob", r.AttackerName)
	assert.Equal(t, "Alice", r.VictimName)
	assert.Equal(t, core.DestroyLevelHard, r.DestroyLevel)
	assert.True(t, r.Expired)
	assert.Equal(t, time.Date(2024, 5, 12, 18, 22, 0, 0, time.UTC), r.LoggedAt)

	pos, ok := geo.Position(r.Position)
	require.True(t, ok)
	assert.Equal(t, core.Position3D{X: 1, Y: 2, Z: 3}, pos)
}

func TestEntryToRecord_Correlated(t *testing.T) {
	death := core.NewActorDeath(killRecord(), recordedAt)
	ev := core.CorrelatedKillEvent{
		Vehicle:      vehicle(),
		Death:        death,
		Context:      core.KillContextHard,
		Score:        1.32,
		AttackerName: "Bob",
		AttackerID:   "100",
		VictimName:   "Alice",
		VictimID:     "200",
		VehicleLabel: "Aegis Gladius",
	}

	r := EntryToRecord(core.JournalEntry{Kind: ev.Kind(), Event: ev})

	assert.Equal(t, "correlated_kill", r.Kind)
	assert.Equal(t, "hard_death", r.KillContext)
	assert.InDelta(t, 1.32, r.Score, 1e-9)
	assert.Equal(t, "Aegis Gladius", r.Vehicle)
	assert.Equal(t, "Aegis Avenger", r.Zone)
	assert.Equal(t, death.Timestamp, r.Timestamp)
}

func TestEntryToRecord_ModeChange(t *testing.T) {
	ev := core.ModeChangeEvent{Current: core.GameMode{Raw: "SC_Default", Mapped: "Persistent Universe"}}

	r := EntryToRecord(core.JournalEntry{Kind: ev.Kind(), Event: ev})

	assert.Equal(t, "SC_Default", r.GameModeRaw)
	assert.Equal(t, "Persistent Universe", r.GameMode)
}

func TestDelivery_RoundTrip(t *testing.T) {
	d := core.DeliveryRecord{
		EventID:    "e1",
		Outcome:    "created",
		Attempts:   4,
		StatusCode: 201,
		Message:    "Kill recorded",
		FinishedAt: recordedAt,
	}

	var r model.EventRecord
	r.EventID = "e1"
	ApplyDelivery(&r, d)

	assert.Equal(t, d, RecordDelivery(r))

	cols := DeliveryColumns(d)
	assert.Equal(t, "created", cols["delivery_outcome"])
	assert.Equal(t, 4, cols["delivery_attempts"])
	assert.Equal(t, recordedAt, cols["delivered_at"])
}

func TestRecordPayload_Missing(t *testing.T) {
	_, err := RecordPayload(model.EventRecord{EventID: "e9"})
	assert.Error(t, err)
}
