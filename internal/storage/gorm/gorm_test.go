package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "journal.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{DB: openDB(t), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func killEntry(id string, payload bool) core.JournalEntry {
	rec := core.KillRecord{
		Timestamp:    "2024-05-12T18:21:33.456Z",
		VictimName:   "Alice",
		AttackerName: "Bob",
		Weapon:       "Pistol",
		Zone:         "Stanton",
	}
	e := core.JournalEntry{
		EventID:    id,
		Kind:       core.KindKill,
		Event:      core.KillEvent{Record: rec},
		Player:     "Bob",
		RecordedAt: time.Now().UTC(),
	}
	if payload {
		e.Payload = &core.Payload{EventID: id, AttackerName: "Bob", VictimName: "Alice", Timestamp: rec.Timestamp}
	}
	return e
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestInitClose(t *testing.T) {
	b := New(Dependencies{DB: openDB(t)})

	require.NoError(t, b.Init())
	require.NotNil(t, b.stopChan)
	assert.True(t, b.DB().Migrator().HasTable(&model.EventRecord{}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestRecordEvent_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordEvent(killEntry("e1", true)))
	assert.Equal(t, 1, b.Pending())

	var count int64
	b.DB().Model(&model.EventRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)

	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())

	var row model.EventRecord
	require.NoError(t, b.DB().Where("event_id = ?", "e1").First(&row).Error)
	assert.Equal(t, "kill", row.Kind)
	assert.Equal(t, "Alice", row.VictimName)
	assert.NotEmpty(t, row.Payload)
}

func TestRecordEvent_TimesReadBack(t *testing.T) {
	b := newTestBackend(t)

	logged := time.Date(2024, 5, 12, 18, 21, 33, 456_000_000, time.UTC)
	e := killEntry("e1", true)
	kill := e.Event.(core.KillEvent)
	kill.Record.Time = logged
	e.Event = kill
	require.NoError(t, b.RecordEvent(e))

	finished := logged.Add(2 * time.Second)
	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{EventID: "e1", Outcome: "exhausted", FinishedAt: finished}))
	require.NoError(t, b.Flush())

	var row model.EventRecord
	require.NoError(t, b.DB().Where("event_id = ?", "e1").First(&row).Error)
	assert.True(t, logged.Equal(row.LoggedAt), "loggedAt %v", row.LoggedAt)
	assert.True(t, finished.Equal(row.DeliveredAt), "deliveredAt %v", row.DeliveredAt)
	assert.WithinDuration(t, e.RecordedAt, row.RecordedAt, time.Millisecond)

	payloads, err := b.Undelivered(0)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "e1", payloads[0].EventID)
}

func TestSession_StampsEvents(t *testing.T) {
	b := newTestBackend(t)

	s := core.Session{LogPath: "Game.log", StartedAt: time.Now().UTC()}
	require.NoError(t, b.StartSession(&s))
	require.NotZero(t, s.ID)

	require.NoError(t, b.RecordEvent(killEntry("e1", false)))
	require.NoError(t, b.Flush())

	s.Player = "Bob"
	s.EndedAt = time.Now().UTC()
	require.NoError(t, b.EndSession(s))

	var row model.EventRecord
	require.NoError(t, b.DB().First(&row).Error)
	assert.Equal(t, s.ID, row.SessionID)

	var session model.SessionRecord
	require.NoError(t, b.DB().First(&session, s.ID).Error)
	assert.Equal(t, "Bob", session.Player)
	assert.False(t, session.EndedAt.IsZero())
}

func TestRecordDelivery_UpdatesRow(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordEvent(killEntry("e1", true)))
	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{
		EventID:    "e1",
		Outcome:    "created",
		Attempts:   2,
		StatusCode: 201,
		Message:    "Kill recorded",
		FinishedAt: time.Now().UTC(),
	}))
	require.NoError(t, b.Flush())

	var row model.EventRecord
	require.NoError(t, b.DB().Where("event_id = ?", "e1").First(&row).Error)
	assert.Equal(t, "created", row.DeliveryOutcome)
	assert.Equal(t, 2, row.DeliveryAttempts)
	assert.Equal(t, 201, row.DeliveryStatus)
}

func TestRecordDelivery_UnknownEventIsDropped(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{EventID: "missing", Outcome: "created"}))
	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())
}

func TestUndelivered(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordEvent(killEntry("delivered", true)))
	require.NoError(t, b.RecordEvent(killEntry("exhausted", true)))
	require.NoError(t, b.RecordEvent(killEntry("unfinished", true)))
	require.NoError(t, b.RecordEvent(killEntry("rejected", true)))
	require.NoError(t, b.RecordEvent(killEntry("display-only", false)))
	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{EventID: "delivered", Outcome: "created"}))
	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{EventID: "exhausted", Outcome: "exhausted"}))
	require.NoError(t, b.RecordDelivery(core.DeliveryRecord{EventID: "rejected", Outcome: "client_error"}))

	payloads, err := b.Undelivered(10)
	require.NoError(t, err)

	var ids []string
	for _, p := range payloads {
		ids = append(ids, p.EventID)
	}
	assert.Equal(t, []string{"exhausted", "unfinished"}, ids)

	limited, err := b.Undelivered(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestWriterLoop_Flushes(t *testing.T) {
	b := New(Dependencies{DB: openDB(t), FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordEvent(killEntry("e1", false)))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}
