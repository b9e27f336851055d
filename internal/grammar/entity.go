package grammar

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	npcDigitsRe       = regexp.MustCompile(`\d{8,}$`)
	vehicleEntityRe   = regexp.MustCompile(`^[A-Za-z]{3,5}_.+_\d{10,}$`)
	aiModulePrefixRe  = regexp.MustCompile(`(?i)^ai_?module`)
	manufacturerPreRe = regexp.MustCompile(`^([A-Za-z]{3,4})_`)
)

// IsNPC reports whether an actor name belongs to a non-player character:
// it carries a faction or role marker, or ends in eight or more digits.
func IsNPC(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range npcMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return npcDigitsRe.MatchString(name)
}

// IsAIVehicle reports whether a vehicle name carries an AI or NPC crew marker.
func IsAIVehicle(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "ai_") {
		return true
	}
	for _, marker := range aiVehicleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsVehicleEntity reports whether an actor name is a vehicle rather than a person.
func IsVehicleEntity(name string) bool {
	if vehicleEntityRe.MatchString(name) || aiModulePrefixRe.MatchString(name) {
		return true
	}
	m := manufacturerPreRe.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	if _, ok := manufacturerNames[strings.ToUpper(m[1])]; !ok {
		return false
	}
	return !strings.ContainsFunc(name, unicode.IsLower)
}
