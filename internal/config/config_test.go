package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"game": { "logPath": "C:/Games/StarCitizen/LIVE/Game.log" },
		"correlator": { "softDeathTimeout": "750ms", "matchThreshold": 0.5 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "C:/Games/StarCitizen/LIVE/Game.log", GetString("game.logPath"))
	assert.Equal(t, 750*time.Millisecond, GetDuration("correlator.softDeathTimeout"))
	assert.Equal(t, time.Second, GetDuration("correlator.hardDeathTimeout"))
	assert.Equal(t, 0.5, GetFloat64("correlator.matchThreshold"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./killfeed-logs", viper.GetString("logsDir"))
	assert.Equal(t, 250*time.Millisecond, GetDuration("tailer.pollInterval"))
	assert.Equal(t, time.Second, GetDuration("tailer.reopenInterval"))
	assert.Equal(t, 500*time.Millisecond, GetDuration("correlator.softDeathTimeout"))
	assert.Equal(t, time.Second, GetDuration("correlator.hardDeathTimeout"))
	assert.Equal(t, time.Second, GetDuration("correlator.baseTimeout"))
	assert.Equal(t, 100*time.Millisecond, GetDuration("correlator.sweepInterval"))
	assert.Equal(t, 0.3, GetFloat64("correlator.matchThreshold"))
	assert.Equal(t, 1024, GetInt("correlator.eventBuffer"))
	assert.Equal(t, "http://localhost:5000", viper.GetString("api.serverUrl"))
	assert.Equal(t, "/api/kills", viper.GetString("api.killsPath"))
	assert.Equal(t, 10*time.Second, GetDuration("api.timeout"))
	assert.Equal(t, 5, GetInt("delivery.maxAttempts"))
	assert.Equal(t, time.Second, GetDuration("delivery.backoffBase"))
	assert.Equal(t, 10*time.Minute, GetDuration("delivery.dedupeTTL"))
	assert.Equal(t, "killfeed", viper.GetString("db.database"))
	assert.Equal(t, false, GetBool("feed.enabled"))
	assert.Equal(t, false, GetBool("influx.enabled"))
	assert.Equal(t, false, GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, 30*time.Second, GetDuration("monitor.interval"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	// defaults still apply
	assert.Equal(t, 5, GetInt("delivery.maxAttempts"))
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{ not json`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, 5000, cfg.Memory.Capacity)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, "", cfg.SQLite.Path)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false, "capacity": 10 },
			"sqlite": { "path": "/tmp/journal.db", "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10, sc.Memory.Capacity)
	assert.Equal(t, "/tmp/journal.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "killfeed", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}
