// Package convert provides functions to convert between journal entries and GORM models
package convert

import (
	"encoding/json"
	"time"

	"github.com/sctracker/killfeed/internal/geo"
	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/internal/util"
	"github.com/sctracker/killfeed/pkg/core"
	"gorm.io/datatypes"
)

// EntryToRecord converts a journal entry to an events row. Delivery columns
// stay empty until a DeliveryRecord is applied.
func EntryToRecord(e core.JournalEntry) model.EventRecord {
	r := model.EventRecord{
		EventID:     e.EventID,
		Kind:        string(e.Kind),
		Player:      e.Player,
		GameModeRaw: e.GameMode.Raw,
		GameMode:    e.GameMode.Label(),
		Position:    geo.Point(core.Position3D{}),
		RecordedAt:  e.RecordedAt,
	}
	if e.Event != nil {
		r.Summary = util.Truncate(e.Event.Describe(), 255)
	}

	switch ev := e.Event.(type) {
	case core.KillEvent:
		applyKill(&r, ev.Record)
	case core.DeathEvent:
		applyKill(&r, ev.Record)
	case core.VehicleDestroyedEvent:
		applyVehicle(&r, ev.Vehicle, ev.VehicleLabel, ev.ZoneLabel)
		r.Expired = ev.Expired
	case core.EjectionEvent:
		applyVehicle(&r, ev.Vehicle, ev.VehicleLabel, ev.ZoneLabel)
		r.VictimName = ev.Pilot
	case core.CorrelatedKillEvent:
		applyVehicle(&r, ev.Vehicle, ev.VehicleLabel, "")
		r.AttackerName = ev.AttackerName
		r.AttackerID = ev.AttackerID
		r.VictimName = ev.VictimName
		r.VictimID = ev.VictimID
		r.Weapon = ev.Death.Weapon
		r.DamageType = ev.Death.DamageType
		r.Zone = ev.Death.Record.Zone
		r.KillContext = string(ev.Context)
		r.Score = ev.Score
		r.Timestamp = ev.Death.Timestamp
		r.LoggedAt = ev.Death.Record.Time
	case core.ModeChangeEvent:
		r.GameModeRaw = ev.Current.Raw
		r.GameMode = ev.Current.Label()
	}

	if e.Payload != nil {
		r.Payload = PayloadToJSON(*e.Payload)
	}
	return r
}

func applyKill(r *model.EventRecord, k core.KillRecord) {
	r.AttackerName = k.AttackerName
	r.AttackerID = k.AttackerID
	r.VictimName = k.VictimName
	r.VictimID = k.VictimID
	r.Weapon = k.Weapon
	r.DamageType = k.DamageType
	r.Zone = k.Zone
	r.Timestamp = k.Timestamp
	r.LoggedAt = k.Time
}

func applyVehicle(r *model.EventRecord, v core.VehicleDestruction, vehicleLabel, zoneLabel string) {
	r.Vehicle = vehicleLabel
	r.VehicleID = v.VehicleID
	r.AttackerName = v.DestroyerName
	r.AttackerID = v.DestroyerID
	r.VictimName = v.DriverName
	r.VictimID = v.DriverID
	r.DamageType = v.DamageCause
	r.Zone = zoneLabel
	r.DestroyLevel = v.DestroyLevel
	r.Position = geo.Point(v.Position)
	r.Timestamp = v.Timestamp
	if t, err := time.Parse(time.RFC3339Nano, v.Timestamp); err == nil {
		r.LoggedAt = t
	}
}

// PayloadToJSON encodes a payload for the JSON column.
func PayloadToJSON(p core.Payload) datatypes.JSON {
	data, err := json.Marshal(p)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// DeliveryColumns maps a delivery record onto events column updates.
func DeliveryColumns(d core.DeliveryRecord) map[string]any {
	return map[string]any{
		"delivery_outcome":  d.Outcome,
		"delivery_attempts": d.Attempts,
		"delivery_status":   d.StatusCode,
		"delivery_message":  util.Truncate(d.Message, 255),
		"delivery_error":    util.Truncate(d.Error, 255),
		"delivered_at":      d.FinishedAt,
	}
}

// ApplyDelivery copies a delivery record onto a row.
func ApplyDelivery(r *model.EventRecord, d core.DeliveryRecord) {
	r.DeliveryOutcome = d.Outcome
	r.DeliveryAttempts = d.Attempts
	r.DeliveryStatus = d.StatusCode
	r.DeliveryMessage = util.Truncate(d.Message, 255)
	r.DeliveryError = util.Truncate(d.Error, 255)
	r.DeliveredAt = d.FinishedAt
}
