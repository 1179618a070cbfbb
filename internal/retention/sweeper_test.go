package retention

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/prefs"
	"github.com/runnerr0/notifylog/internal/storage"
)

type stubPrefs struct {
	p prefs.Prefs
}

func (s *stubPrefs) Get() prefs.Prefs { return s.p }

func openRetentionTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func insertAt(t *testing.T, store storage.Store, receivedTime int64) int64 {
	t.Helper()
	id, err := store.Insert(context.Background(), &storage.Notification{
		PackageName:  "com.example.app",
		Title:        "old news",
		PostedTime:   receivedTime,
		ReceivedTime: receivedTime,
	})
	require.NoError(t, err)
	return id
}

func TestRunNow_DeletesOnlyExpired(t *testing.T) {
	store := openRetentionTestStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// 31 days old: expired. 29 days old and 1 day old: kept.
	insertAt(t, store, now.AddDate(0, 0, -31).UnixMilli())
	keptA := insertAt(t, store, now.AddDate(0, 0, -29).UnixMilli())
	keptB := insertAt(t, store, now.AddDate(0, 0, -1).UnixMilli())

	s, err := New(store, &stubPrefs{p: prefs.Prefs{AutoDeleteDays: 30}}, "@daily", logging.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	deleted, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	ids := []int64{remaining[0].ID, remaining[1].ID}
	assert.ElementsMatch(t, []int64{keptA, keptB}, ids)
}

func TestRunNow_ExactBoundaryKept(t *testing.T) {
	store := openRetentionTestStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// Exactly at the cutoff: deletion is strictly-older-than, so kept.
	insertAt(t, store, now.UnixMilli()-30*millisPerDay)

	s, err := New(store, &stubPrefs{p: prefs.Prefs{AutoDeleteDays: 30}}, "@daily", logging.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	deleted, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRunNow_DisabledWhenDaysNonPositive(t *testing.T) {
	store := openRetentionTestStore(t)
	insertAt(t, store, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())

	for _, days := range []int{0, -5} {
		src := &stubPrefs{p: prefs.Prefs{AutoDeleteDays: days}}
		s, err := New(store, src, "@daily", logging.Nop())
		require.NoError(t, err)

		deleted, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.Zero(t, deleted)
	}

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunNow_ReadsHorizonFresh(t *testing.T) {
	store := openRetentionTestStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	insertAt(t, store, now.AddDate(0, 0, -10).UnixMilli())

	src := &stubPrefs{p: prefs.Prefs{AutoDeleteDays: 30}}
	s, err := New(store, src, "@daily", logging.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	deleted, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Shrink the horizon; the next sweep picks it up without restart.
	src.p.AutoDeleteDays = 7
	deleted, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestNew_InvalidSchedule(t *testing.T) {
	store := openRetentionTestStore(t)
	_, err := New(store, &stubPrefs{}, "every tuesday-ish", logging.Nop())
	assert.Error(t, err)
}

func TestStartRunsCatchUpSweep(t *testing.T) {
	store := openRetentionTestStore(t)
	now := time.Now()
	insertAt(t, store, now.AddDate(0, 0, -40).UnixMilli())
	kept := insertAt(t, store, now.UnixMilli())

	s, err := New(store, &stubPrefs{p: prefs.Prefs{AutoDeleteDays: 30}}, "@daily", logging.Nop())
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	remaining, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept, remaining[0].ID)
}
