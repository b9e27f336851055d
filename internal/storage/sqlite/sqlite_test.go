package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/database"
	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) core.JournalEntry {
	return core.JournalEntry{
		EventID: id,
		Kind:    core.KindDeath,
		Event:   core.DeathEvent{Record: core.KillRecord{AttackerName: "Bob", VictimName: "Alice"}},
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(config.SQLiteConfig{Path: path}, time.Hour, database.NewManager(zerolog.Nop()), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordEvent(entry("e1")))
	require.NoError(t, b.Close())

	db, err := database.NewManager(zerolog.Nop()).GetSqliteDB(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.EventRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMemoryBackend_DumpsOnClose(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(config.SQLiteConfig{DumpPath: dump, DumpInterval: time.Hour}, time.Hour, database.NewManager(zerolog.Nop()), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordEvent(entry("e1")))
	require.NoError(t, b.RecordEvent(entry("e2")))
	require.NoError(t, b.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)

	db, err := database.NewManager(zerolog.Nop()).GetSqliteDB(dump)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.EventRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestMemoryBackend_PeriodicDump(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(config.SQLiteConfig{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, time.Hour, database.NewManager(zerolog.Nop()), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordEvent(entry("e1")))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
