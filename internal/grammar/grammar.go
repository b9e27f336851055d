// Package grammar matches game client log lines and normalises the names they carry.
// Everything here is stateless and safe for concurrent use.
package grammar

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sctracker/killfeed/pkg/core"
)

const number = `([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)`

var (
	legacyLoginRe = regexp.MustCompile(`<Legacy login response>.*User Login Success - Handle\[([^\]]+)\]`)

	gameModeRe = regexp.MustCompile(`Loading GameModeRecord='([^']*)' with EGameModeId='([^']*)'`)

	killRe = regexp.MustCompile(
		`^<(?P<ts>[^>]+)>.*?CActor::Kill: ` +
			`'(?P<victim>[^']*)' \[(?P<victimID>\d+)\] ` +
			`in zone '(?P<zone>[^']*)' ` +
			`killed by '(?P<attacker>[^']*)' \[(?P<attackerID>\d+)\] ` +
			`using '(?P<weapon>[^']*)'(?: \[[^\]]*\])? ` +
			`with damage type '(?P<damageType>[^']*)' ` +
			`from direction x: ` + number + `,? y: ` + number + `,? z: ` + number,
	)

	vehicleRe = regexp.MustCompile(
		`^<(?P<ts>[^>]+)>.*?CVehicle::OnAdvanceDestroyLevel: ` +
			`Vehicle '(?P<vehicle>[^']*)' \[(?P<vehicleID>\d+)\] ` +
			`in zone '(?P<zone>[^']*)' ` +
			`\[pos x: ` + number + `,? y: ` + number + `,? z: ` + number + `[^\]]*\] ` +
			`driven by '(?P<driver>[^']*)' \[(?P<driverID>\d+)\] ` +
			`advanced from destroy level (?P<from>\d+) to (?P<to>\d+) ` +
			`caused by '(?P<destroyer>[^']*)' \[(?P<destroyerID>\d+)\] ` +
			`with '(?P<cause>[^']*)'`,
	)
)

// Capture group positions of the unnamed direction and position numbers.
var (
	killDirX = killRe.SubexpIndex("damageType") + 1
	vehPosX  = vehicleRe.SubexpIndex("zone") + 1
)

// ParseLegacyLogin returns the handle from a successful legacy login notice.
func ParseLegacyLogin(line string) (string, bool) {
	m := legacyLoginRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	handle := strings.TrimSpace(m[1])
	return handle, handle != ""
}

// ParseGameMode returns the raw GameModeRecord identifier from a game mode notice.
func ParseGameMode(line string) (string, bool) {
	m := gameModeRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MapGameMode returns the display label for a raw game mode identifier.
func MapGameMode(raw string) (string, bool) {
	label, ok := gameModes[raw]
	return label, ok
}

// ParseKill matches an actor death line. A non-match means the line is not a
// kill and is not an error. GameMode is left for the caller to stamp.
func ParseKill(line string) (core.KillRecord, bool) {
	m := killRe.FindStringSubmatch(line)
	if m == nil {
		return core.KillRecord{}, false
	}
	get := func(name string) string { return m[killRe.SubexpIndex(name)] }

	ts, t := NormalizeTimestamp(get("ts"))
	victim := get("victim")
	attacker := get("attacker")

	return core.KillRecord{
		Line:          line,
		Timestamp:     ts,
		Time:          t,
		VictimName:    victim,
		VictimID:      get("victimID"),
		AttackerName:  attacker,
		AttackerID:    get("attackerID"),
		Zone:          FormatZone(get("zone")),
		RawZone:       get("zone"),
		Weapon:        FormatWeapon(get("weapon")),
		RawWeapon:     get("weapon"),
		DamageType:    get("damageType"),
		Direction:     parsePosition(m[killDirX : killDirX+3]),
		VictimIsNPC:   IsNPC(victim),
		AttackerIsNPC: IsNPC(attacker),
	}, true
}

// ParseVehicleDestruction matches a vehicle destroy-level notice.
// ObservedAt is left for the caller to stamp.
func ParseVehicleDestruction(line string) (core.VehicleDestruction, bool) {
	m := vehicleRe.FindStringSubmatch(line)
	if m == nil {
		return core.VehicleDestruction{}, false
	}
	get := func(name string) string { return m[vehicleRe.SubexpIndex(name)] }

	ts, _ := NormalizeTimestamp(get("ts"))
	from, _ := strconv.Atoi(get("from"))
	to, _ := strconv.Atoi(get("to"))

	return core.VehicleDestruction{
		Line:          line,
		Timestamp:     ts,
		VehicleName:   get("vehicle"),
		VehicleID:     get("vehicleID"),
		Zone:          get("zone"),
		Position:      parsePosition(m[vehPosX : vehPosX+3]),
		DriverName:    get("driver"),
		DriverID:      get("driverID"),
		FromLevel:     from,
		DestroyLevel:  to,
		DestroyerName: get("destroyer"),
		DestroyerID:   get("destroyerID"),
		DamageCause:   get("cause"),
	}, true
}

// IsUnknownIdentity reports whether a name/id pair cannot be attributed to anyone.
func IsUnknownIdentity(name, id string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, "unknown") || id == "0"
}

// IsEjection reports whether a vehicle damage cause is a pilot ejection.
func IsEjection(cause string) bool {
	return strings.EqualFold(strings.TrimSpace(cause), "ejection")
}

func parsePosition(xyz []string) core.Position3D {
	var p core.Position3D
	p.X, _ = strconv.ParseFloat(xyz[0], 64)
	p.Y, _ = strconv.ParseFloat(xyz[1], 64)
	p.Z, _ = strconv.ParseFloat(xyz[2], 64)
	return p
}
