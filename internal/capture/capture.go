// Package capture gates which event-source events become stored
// notification records: preference checks, system-app and self filtering,
// content extraction, time-windowed deduplication, persistence.
package capture

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/notifylog/internal/prefs"
	"github.com/runnerr0/notifylog/internal/storage"
)

// PostedEvent is a notification-posted callback payload. Text carries the
// short text field; BigText the expanded one.
type PostedEvent struct {
	Package    string
	Title      string
	Text       string
	BigText    string
	PostedTime int64 // epoch millis reported by the OS
}

// RemovedEvent is a notification-removed callback payload.
type RemovedEvent struct {
	Package    string
	PostedTime int64
}

// PrefsSource supplies the latest preference snapshot. Read fresh on every
// decision, never cached at startup.
type PrefsSource interface {
	Get() prefs.Prefs
}

// Config tunes the capture service.
type Config struct {
	// SelfPackage is this application's own package; never logged.
	SelfPackage string
	// DedupeEnabled turns the duplicate-suppression window on.
	DedupeEnabled bool
	// DedupeWindow is how long an identical fingerprint is suppressed.
	DedupeWindow time.Duration
	// QueueSize bounds the intake queue; overflow drops events.
	QueueSize int
}

// Service is the ingestion API. OnPosted and OnRemoved enqueue and return
// immediately; a single worker drains the queue, which keeps received_time
// monotonic with insertion order. Per-event failures are logged and
// swallowed so one malformed notification never stops capture.
type Service struct {
	store    storage.Store
	prefs    PrefsSource
	resolver Resolver
	dedup    *Deduplicator
	cfg      Config
	log      zerolog.Logger

	mu     sync.RWMutex
	queue  chan event
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64

	// now supplies the clock for dedup decisions; overridable in tests.
	now func() time.Time
}

// event is either a posted or a removed payload.
type event struct {
	posted  *PostedEvent
	removed *RemovedEvent
}

// New creates a capture Service. Call Start before delivering events.
func New(store storage.Store, ps PrefsSource, resolver Resolver, cfg Config, log zerolog.Logger) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = 3 * time.Second
	}

	return &Service{
		store:    store,
		prefs:    ps,
		resolver: resolver,
		dedup:    NewDeduplicator(cfg.DedupeWindow),
		cfg:      cfg,
		log:      log,
		queue:    make(chan event, cfg.QueueSize),
		now:      time.Now,
	}
}

// Start launches the worker. ctx bounds the store calls issued for queued
// events.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.queue {
			if ev.posted != nil {
				s.handlePosted(ctx, *ev.posted)
			} else if ev.removed != nil {
				s.handleRemoved(ctx, *ev.removed)
			}
		}
	}()
}

// Stop closes the intake and waits for queued events to drain. No events
// may be delivered after Stop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// OnPosted ingests a posted event. Never blocks: when the queue is full
// the event is dropped and counted.
func (s *Service) OnPosted(ev PostedEvent) {
	s.enqueue(event{posted: &ev})
}

// OnRemoved ingests a removed event.
func (s *Service) OnRemoved(ev RemovedEvent) {
	s.enqueue(event{removed: &ev})
}

func (s *Service) enqueue(ev event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		n := s.dropped.Add(1)
		s.log.Warn().Uint64("dropped_total", n).Msg("capture queue full, event dropped")
	}
}

// Dropped returns how many events were discarded due to a full queue.
func (s *Service) Dropped() uint64 {
	return s.dropped.Load()
}

// handlePosted runs the capture policy for one posted event. Every check
// fails fast; every failure is per-event only.
func (s *Service) handlePosted(ctx context.Context, ev PostedEvent) {
	p := s.prefs.Get()

	if !p.LoggingEnabled {
		return
	}
	if p.IgnoreSystemApps && s.resolver.IsSystemPackage(ev.Package) {
		return
	}
	if ev.Package == s.cfg.SelfPackage {
		return
	}

	title := ev.Title
	content := ev.Text
	if strings.TrimSpace(content) == "" {
		content = ev.BigText
	}

	// No informational content, nothing worth keeping.
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return
	}

	if s.cfg.DedupeEnabled {
		fp := Fingerprint(ev.Package, title, content)
		if s.dedup.ShouldSuppress(fp, s.now()) {
			return
		}
	}

	appName, err := s.resolver.AppName(ev.Package)
	if err != nil {
		// Best-effort only; the record is stored without a label.
		appName = ""
	}

	n := storage.Notification{
		PackageName: ev.Package,
		AppName:     appName,
		Title:       title,
		Content:     content,
		PostedTime:  ev.PostedTime,
	}
	if _, err := s.store.Insert(ctx, &n); err != nil {
		s.log.Warn().Err(err).Str("package", ev.Package).Msg("insert failed, event not logged")
	}
}

// handleRemoved marks all rows matching (package, postedTime) as cleared.
// Zero matches is expected when the notification predates logging or never
// passed the capture filters.
func (s *Service) handleRemoved(ctx context.Context, ev RemovedEvent) {
	if _, err := s.store.MarkCleared(ctx, ev.Package, ev.PostedTime); err != nil {
		s.log.Warn().Err(err).Str("package", ev.Package).Msg("mark cleared failed")
	}
}
