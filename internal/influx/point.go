package influx

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sctracker/killfeed/pkg/core"
)

// EventPoint builds the stats point for a kill, death or vehicle event.
// It returns nil for events that carry no combat statistics.
func EventPoint(e core.JournalEntry) *influxdb2_write.Point {
	tags := map[string]string{
		"gameMode": e.GameMode.Label(),
	}
	fields := map[string]any{
		"count": 1,
	}
	ts := e.RecordedAt
	var role core.Role

	switch ev := e.Event.(type) {
	case core.KillEvent:
		role = core.RoleAttacker
		applyRecord(tags, fields, ev.Record)
		ts = eventTime(ev.Record.Time, ts)
	case core.DeathEvent:
		role = core.RoleVictim
		applyRecord(tags, fields, ev.Record)
		ts = eventTime(ev.Record.Time, ts)
	case core.VehicleDestroyedEvent:
		role = core.RoleOf(e.Player, ev.Vehicle.DestroyerName, ev.Vehicle.DriverName)
		tags["zone"] = ev.ZoneLabel
		tags["status"] = ev.Status()
		fields["vehicle"] = ev.VehicleLabel
		fields["destroyer"] = ev.Vehicle.DestroyerName
		fields["damageCause"] = ev.Vehicle.DamageCause
		fields["destroyLevel"] = ev.Vehicle.DestroyLevel
		fields["expired"] = ev.Expired
	case core.CorrelatedKillEvent:
		role = core.RoleOf(e.Player, ev.AttackerName, ev.VictimName)
		applyRecord(tags, fields, ev.Death.Record)
		tags["killContext"] = string(ev.Context)
		fields["vehicle"] = ev.VehicleLabel
		fields["score"] = ev.Score
		ts = eventTime(ev.Death.Record.Time, ts)
	default:
		return nil
	}

	tags["kind"] = string(e.Event.Kind())
	tags["role"] = roleTag(role)
	for k, v := range tags {
		if v == "" {
			delete(tags, k)
		}
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(Measurement, tags, fields, ts)
}

func applyRecord(tags map[string]string, fields map[string]any, r core.KillRecord) {
	tags["zone"] = r.Zone
	tags["damageType"] = r.DamageType
	fields["attacker"] = r.AttackerName
	fields["victim"] = r.VictimName
	fields["weapon"] = r.Weapon
	fields["victimIsNpc"] = r.VictimIsNPC
}

func eventTime(logged, fallback time.Time) time.Time {
	if logged.IsZero() {
		return fallback
	}
	return logged
}

func roleTag(r core.Role) string {
	if r == core.RoleNone {
		return "none"
	}
	return string(r)
}
