package correlator

import (
	"strings"
	"time"

	"github.com/sctracker/killfeed/pkg/core"
)

const (
	closeWindow = 5 * time.Second
	farWindow   = 15 * time.Second
)

// Score rates how likely it is that the actor death was caused by the vehicle
// destruction. Pairs more than 15 seconds apart score exactly 0.
func Score(v core.VehicleDestruction, d core.ActorDeath) float64 {
	gap := d.ObservedAt.Sub(v.ObservedAt)
	if gap < 0 {
		gap = -gap
	}

	var score float64
	switch {
	case gap <= closeWindow:
		score = 0.5
	case gap <= farWindow:
		score = 0.3
	default:
		return 0
	}

	if zoneMatches(v, d) {
		score += 0.3
		if v.DestroyLevel == core.DestroyLevelSoft {
			score += 0.2
		}
	} else if v.DestroyLevel == core.DestroyLevelSoft {
		score *= 0.5
	}

	if knownName(v.DestroyerName) && knownName(d.AttackerName) && strings.EqualFold(v.DestroyerName, d.AttackerName) {
		score += 0.2
	}

	if core.IsVehicleDestruction(d.DamageType) {
		score += 0.1
	}

	return score * levelFactor(v.DestroyLevel)
}

func zoneMatches(v core.VehicleDestruction, d core.ActorDeath) bool {
	if d.Zone == "" {
		return false
	}
	return v.Zone == d.Zone ||
		v.VehicleName == d.Zone ||
		(v.VehicleID != "" && strings.Contains(d.Zone, v.VehicleID))
}

func levelFactor(level int) float64 {
	switch level {
	case core.DestroyLevelSoft:
		return 0.7
	case core.DestroyLevelHard:
		return 1.2
	default:
		return 1.0
	}
}

func knownName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !strings.EqualFold(name, "unknown")
}
