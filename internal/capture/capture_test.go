package capture

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/notifylog/internal/prefs"
	"github.com/runnerr0/notifylog/internal/storage"
)

// stubPrefs supplies a mutable preference snapshot without a backing file.
type stubPrefs struct {
	mu sync.Mutex
	p  prefs.Prefs
}

func (s *stubPrefs) Get() prefs.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

func (s *stubPrefs) set(p prefs.Prefs) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

// stubResolver resolves from fixed tables.
type stubResolver struct {
	labels map[string]string
	system map[string]bool
}

func (r *stubResolver) AppName(pkg string) (string, error) {
	if label, ok := r.labels[pkg]; ok {
		return label, nil
	}
	return "", ErrUnknownPackage
}

func (r *stubResolver) IsSystemPackage(pkg string) bool {
	return r.system[pkg]
}

func openCaptureTestStore(t *testing.T) storage.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type captureFixture struct {
	svc   *Service
	store storage.Store
	prefs *stubPrefs
}

func newCaptureFixture(t *testing.T, cfg Config, resolver Resolver) *captureFixture {
	t.Helper()

	store := openCaptureTestStore(t)
	ps := &stubPrefs{p: prefs.Default()}
	if resolver == nil {
		resolver = &stubResolver{labels: map[string]string{}, system: map[string]bool{}}
	}

	svc := New(store, ps, resolver, cfg, zerolog.Nop())
	svc.Start(context.Background())

	return &captureFixture{svc: svc, store: store, prefs: ps}
}

// drain stops the service so every queued event has been processed.
func (f *captureFixture) drain() {
	f.svc.Stop()
}

func (f *captureFixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestOnPosted_PersistsRecord(t *testing.T) {
	f := newCaptureFixture(t, Config{SelfPackage: "app.notifylog"}, &stubResolver{
		labels: map[string]string{"com.example.chat": "Chat"},
		system: map[string]bool{},
	})

	f.svc.OnPosted(PostedEvent{
		Package:    "com.example.chat",
		Title:      "New message",
		Text:       "hello",
		PostedTime: 12345,
	})
	f.drain()

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "com.example.chat", all[0].PackageName)
	assert.Equal(t, "Chat", all[0].AppName)
	assert.Equal(t, "New message", all[0].Title)
	assert.Equal(t, "hello", all[0].Content)
	assert.Equal(t, int64(12345), all[0].PostedTime)
	assert.NotZero(t, all[0].ReceivedTime)
	assert.False(t, all[0].IsCleared)
}

// Blank title AND content means no informational content: no record.
func TestOnPosted_BlankContentSkipped(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)

	f.svc.OnPosted(PostedEvent{Package: "com.example.app", Title: "  ", Text: ""})
	f.svc.OnPosted(PostedEvent{Package: "com.example.app"})
	f.drain()

	assert.Zero(t, f.count(t))
}

func TestOnPosted_TitleOnlyIsKept(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)

	f.svc.OnPosted(PostedEvent{Package: "com.example.app", Title: "just a title"})
	f.drain()

	assert.Equal(t, int64(1), f.count(t))
}

func TestOnPosted_BigTextFallback(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)

	f.svc.OnPosted(PostedEvent{
		Package: "com.example.mail",
		Title:   "Inbox",
		Text:    "   ",
		BigText: "long body text",
	})
	f.drain()

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "long body text", all[0].Content)
}

// Own notifications are never logged, regardless of other settings.
func TestOnPosted_SelfExcluded(t *testing.T) {
	f := newCaptureFixture(t, Config{SelfPackage: "app.notifylog"}, nil)

	f.svc.OnPosted(PostedEvent{Package: "app.notifylog", Title: "service running"})
	f.drain()

	assert.Zero(t, f.count(t))
}

// Scenario: loggingEnabled=false leaves the store untouched.
func TestOnPosted_LoggingDisabled(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)
	f.prefs.set(prefs.Prefs{LoggingEnabled: false, AutoDeleteDays: 30})

	f.svc.OnPosted(PostedEvent{Package: "com.example.app", Title: "t", Text: "c"})
	f.drain()

	assert.Zero(t, f.count(t))
}

// Scenario: the system-app gate follows the live preference.
func TestOnPosted_SystemAppGate(t *testing.T) {
	resolver := &stubResolver{
		labels: map[string]string{},
		system: map[string]bool{"com.android.systemui": true},
	}

	// ignoreSystemApps on: no record.
	f := newCaptureFixture(t, Config{}, resolver)
	f.prefs.set(prefs.Prefs{LoggingEnabled: true, IgnoreSystemApps: true, AutoDeleteDays: 30})
	f.svc.OnPosted(PostedEvent{Package: "com.android.systemui", Title: "battery"})
	f.drain()
	assert.Zero(t, f.count(t))

	// ignoreSystemApps off: record created.
	f2 := newCaptureFixture(t, Config{}, resolver)
	f2.prefs.set(prefs.Prefs{LoggingEnabled: true, IgnoreSystemApps: false, AutoDeleteDays: 30})
	f2.svc.OnPosted(PostedEvent{Package: "com.android.systemui", Title: "battery"})
	f2.drain()
	assert.Equal(t, int64(1), f2.count(t))
}

func TestOnPosted_UnresolvedLabelStoredEmpty(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)

	f.svc.OnPosted(PostedEvent{Package: "com.unknown.app", Title: "t"})
	f.drain()

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "", all[0].AppName, "resolution failure leaves the label empty")
}

// Scenario: two identical events 1s apart inside a 3s window yield one
// record; a third beyond the window yields another.
func TestOnPosted_DedupWindow(t *testing.T) {
	f := newCaptureFixture(t, Config{DedupeEnabled: true, DedupeWindow: 3 * time.Second}, nil)

	base := time.Now()
	times := []time.Time{base, base.Add(1 * time.Second), base.Add(5 * time.Second)}
	var idx int
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ts := times[idx]
		if idx < len(times)-1 {
			idx++
		}
		return ts
	}

	ev := PostedEvent{Package: "com.example.chat", Title: "ping", Text: "pong"}
	f.svc.OnPosted(ev)
	f.svc.OnPosted(ev)
	f.svc.OnPosted(ev)
	f.drain()

	assert.Equal(t, int64(2), f.count(t))
}

func TestOnPosted_DedupDisabled(t *testing.T) {
	f := newCaptureFixture(t, Config{DedupeEnabled: false}, nil)

	ev := PostedEvent{Package: "com.example.chat", Title: "ping", Text: "pong"}
	f.svc.OnPosted(ev)
	f.svc.OnPosted(ev)
	f.drain()

	assert.Equal(t, int64(2), f.count(t))
}

func TestOnRemoved_MarksAllMatches(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)
	ctx := context.Background()

	// Two rows share (package, posted_time); both get cleared.
	f.svc.OnPosted(PostedEvent{Package: "com.example.chat", Title: "a", PostedTime: 99})
	f.svc.OnPosted(PostedEvent{Package: "com.example.chat", Title: "b", PostedTime: 99})
	f.svc.OnRemoved(RemovedEvent{Package: "com.example.chat", PostedTime: 99})
	f.drain()

	all, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, n := range all {
		assert.True(t, n.IsCleared)
	}
}

func TestOnRemoved_NoMatchIsFine(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)

	f.svc.OnRemoved(RemovedEvent{Package: "com.never.seen", PostedTime: 1})
	f.drain()

	assert.Zero(t, f.count(t))
}

func TestOnPosted_AfterStopIsIgnored(t *testing.T) {
	f := newCaptureFixture(t, Config{}, nil)
	f.drain()

	// Must not panic or enqueue.
	f.svc.OnPosted(PostedEvent{Package: "com.example.app", Title: "t"})
	assert.Zero(t, f.count(t))
}

func TestQueueOverflow_DropsNotBlocks(t *testing.T) {
	store := openCaptureTestStore(t)
	ps := &stubPrefs{p: prefs.Default()}
	resolver := &stubResolver{labels: map[string]string{}, system: map[string]bool{}}

	svc := New(store, ps, resolver, Config{QueueSize: 4}, zerolog.Nop())
	// Worker not started: the queue fills and further events must drop.
	for i := 0; i < 10; i++ {
		svc.OnPosted(PostedEvent{Package: "com.example.app", Title: "t"})
	}

	assert.Equal(t, uint64(6), svc.Dropped())

	svc.Start(context.Background())
	svc.Stop()
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(
		map[string]string{"com.example.chat": "Chat"},
		[]string{"com.android.", "android"},
	)

	label, err := r.AppName("com.example.chat")
	require.NoError(t, err)
	assert.Equal(t, "Chat", label)

	_, err = r.AppName("com.other")
	assert.ErrorIs(t, err, ErrUnknownPackage)

	assert.True(t, r.IsSystemPackage("com.android.systemui"), "prefix entry matches")
	assert.True(t, r.IsSystemPackage("android"), "exact entry matches")
	assert.False(t, r.IsSystemPackage("com.androidapp.game"))
	assert.False(t, r.IsSystemPackage("com.example.chat"))
}
