package main

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/feed"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/pkg/core"
)

const scanFixture = `<2024-05-12T18:00:00.000Z> [Notice] <Legacy login response> [CIG-net] User Login Success - Handle[Bob] - Time[1715536800]
<2024-05-12T18:05:00.000Z> Loading GameModeRecord='EA_FreeFlight' with EGameModeId='b7ad9b5c'
<2024-05-12T18:21:33.456Z> [Notice] <Actor Death> CActor::Kill: 'Alice' [1] in zone 'AEGS_Avenger_12345' killed by 'Bob' [2] using 'behr_pistol_01_attachment' [Class unknown] with damage type 'Bullet' from direction x: 0 y: 0 z: 0 [Team_ActorTech][Actor]
some unrelated engine chatter
<2024-05-12T18:22:00.000Z> [Notice] <Actor Death> CActor::Kill: 'bob' [2] in zone 'Stanton_Planet' killed by 'Dave' [4] using 'klwe_rifle_energy_01' [Class unknown] with damage type 'Bullet' from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]
<2024-05-12T18:30:00.000Z> [Notice] <Vehicle Destruction> CVehicle::OnAdvanceDestroyLevel: Vehicle 'DRAK_Cutlass_998877' [998877] in zone 'OOC_Stanton_1_Hurston' [pos x: 1.0, y: 2.0, z: 3.0 vel x: 0, y: 0, z: 0] driven by 'Carol' [3] advanced from destroy level 1 to 2 caused by 'Bob' [2] with 'Combat' [Team_VehicleFeatures][Vehicle]
<2024-05-12T18:30:00.400Z> [Notice] <Actor Death> CActor::Kill: 'Carol' [3] in zone 'OOC_Stanton_1_Hurston' killed by 'Bob' [2] using 'unknown' [Class unknown] with damage type 'VehicleDestruction' from direction x: 0, y: 0, z: 0 [Team_ActorTech][Actor]
<2024-05-12T18:31:00.000Z> [Notice] <Vehicle Destruction> CVehicle::OnAdvanceDestroyLevel: Vehicle 'ANVL_Arrow_4455' [4455] in zone 'OOC_Stanton_2_Crusader' [pos x: 5.0, y: 6.0, z: 7.0 vel x: 0, y: 0, z: 0] driven by 'Erin' [5] advanced from destroy level 0 to 1 caused by 'Bob' [2] with 'Combat' [Team_VehicleFeatures][Vehicle]
`

func decodeEvents(t *testing.T, out string) []feed.EventPayload {
	t.Helper()
	var events []feed.EventPayload
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var p feed.EventPayload
		require.NoError(t, json.Unmarshal(sc.Bytes(), &p), sc.Text())
		events = append(events, p)
	}
	return events
}

func TestScanLog(t *testing.T) {
	config.SetDefaults()

	var out strings.Builder
	state := session.New()
	stats, err := scanLog(strings.NewReader(scanFixture), &out, state)
	require.NoError(t, err)

	events := decodeEvents(t, out.String())
	kinds := make([]core.Kind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []core.Kind{
		core.KindModeChange,
		core.KindKill,
		core.KindDeath,
		core.KindCorrelatedKill,
		core.KindVehicleDestroyed,
	}, kinds)

	kill := events[1]
	assert.Equal(t, "Bob", kill.Attacker)
	assert.Equal(t, "Alice", kill.Victim)
	assert.Equal(t, "Free Flight", kill.GameMode)
	assert.NotEmpty(t, kill.EventID)

	ck := events[3]
	assert.Equal(t, "Carol", ck.Victim)
	assert.Equal(t, core.KillContextHard, ck.KillContext)

	assert.Equal(t, "Bob", state.User())
	assert.Equal(t, int64(8), stats.Lines)
	assert.Equal(t, int64(1), stats.Kills)
	assert.Equal(t, int64(1), stats.Deaths)
	assert.Equal(t, int64(2), stats.Vehicles)
}

func TestScanLog_Empty(t *testing.T) {
	config.SetDefaults()

	var out strings.Builder
	stats, err := scanLog(strings.NewReader(""), &out, session.New())
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, int64(0), stats.Lines)
}

func TestHTTPToWS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://kills.example.org/", "wss://kills.example.org"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in), tt.in)
	}
}

func TestClientVersion(t *testing.T) {
	config.SetDefaults()
	assert.Equal(t, Version, clientVersion())
}
