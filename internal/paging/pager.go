// Package paging maintains the filter-aware loaded window of notification
// records backing a live history view: incremental offset pagination,
// debounced filter changes with stale-fetch discard, and head refresh when
// new records arrive.
package paging

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/runnerr0/notifylog/internal/storage"
)

// State is the pager's loading state, for progress indication.
type State int

const (
	StateIdle State = iota
	StateLoadingInitial
	StateReady
	StateLoadingMore
)

// Snapshot is one immutable view of the loaded window.
type Snapshot struct {
	State      State
	Filter     storage.Filter
	Records    []storage.Notification
	EndReached bool
	// Err is the last query failure, if any. The window degrades to empty
	// or stale rather than failing the consumer.
	Err error
}

// Config tunes the pager.
type Config struct {
	PageSize         int           // default 50
	PrefetchDistance int           // default 15
	SearchDebounce   time.Duration // default 300ms
	// RefreshMinInterval throttles head refreshes under insert bursts.
	RefreshMinInterval time.Duration // default 250ms
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.PrefetchDistance <= 0 {
		c.PrefetchDistance = 15
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = 300 * time.Millisecond
	}
	if c.RefreshMinInterval <= 0 {
		c.RefreshMinInterval = 250 * time.Millisecond
	}
}

// Pager serves a consistent, incrementally-loadable window over the store
// under the active filter. All methods are safe for concurrent use.
type Pager struct {
	ctx   context.Context
	store storage.Store
	cfg   Config
	log   zerolog.Logger

	mu         sync.Mutex
	filter     storage.Filter
	records    []storage.Notification
	offset     int
	endReached bool
	state      State
	err        error
	// gen identifies the current filter generation; fetch completions from
	// an older generation are discarded.
	gen uint64

	// debounce delays applying raw search input.
	debounce   *time.Timer
	rawSearch  string
	hasPending bool

	// refreshCh coalesces head-refresh requests; the refresh loop drains
	// it under the rate limiter.
	refreshCh chan struct{}
	limiter   *rate.Limiter

	subsMu sync.Mutex
	subs   []chan Snapshot

	wg sync.WaitGroup
}

// New creates a Pager and loads the initial unfiltered page. ctx bounds
// all store queries; cancelling it stops the refresh loop.
func New(ctx context.Context, store storage.Store, cfg Config, log zerolog.Logger) *Pager {
	cfg.applyDefaults()

	p := &Pager{
		ctx:       ctx,
		store:     store,
		cfg:       cfg,
		log:       log,
		state:     StateIdle,
		refreshCh: make(chan struct{}, 1),
		limiter:   rate.NewLimiter(rate.Every(cfg.RefreshMinInterval), 1),
	}

	p.wg.Add(1)
	go p.refreshLoop()

	p.mu.Lock()
	p.resetLocked(storage.Filter{})
	p.mu.Unlock()

	return p
}

// Close waits for the refresh loop to exit. Call after cancelling the
// constructor context.
func (p *Pager) Close() {
	p.wg.Wait()
}

// Snapshot returns the current window.
func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// SetSearchText updates the search predicate after the debounce interval,
// so per-keystroke input does not re-query.
func (p *Pager) SetSearchText(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rawSearch = q
	p.hasPending = true
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.cfg.SearchDebounce, p.applyPendingSearch)
}

func (p *Pager) applyPendingSearch() {
	p.mu.Lock()
	if !p.hasPending {
		p.mu.Unlock()
		return
	}
	p.hasPending = false
	next := p.filter
	next.SearchText = p.rawSearch
	p.setFilterLocked(next)
	p.mu.Unlock()
}

// SetPackage updates the package predicate immediately.
func (p *Pager) SetPackage(pkg string) {
	p.mu.Lock()
	next := p.filter
	next.Package = pkg
	p.setFilterLocked(next)
	p.mu.Unlock()
}

// SetDateRange updates the inclusive received-time bounds immediately.
// Zero values clear a bound.
func (p *Pager) SetDateRange(start, end int64) {
	p.mu.Lock()
	next := p.filter
	next.StartDate = start
	next.EndDate = end
	p.setFilterLocked(next)
	p.mu.Unlock()
}

// ClearFilters drops every predicate, including pending search input.
func (p *Pager) ClearFilters() {
	p.mu.Lock()
	p.rawSearch = ""
	p.hasPending = false
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.setFilterLocked(storage.Filter{})
	p.mu.Unlock()
}

// setFilterLocked resets pagination under a new filter. A no-op when the
// filter is unchanged.
func (p *Pager) setFilterLocked(next storage.Filter) {
	if next == p.filter && p.state != StateIdle {
		return
	}
	p.resetLocked(next)
}

// resetLocked discards the loaded window and starts an initial fetch for
// the given filter. Any in-flight fetch is superseded via the generation
// counter.
func (p *Pager) resetLocked(f storage.Filter) {
	p.gen++
	p.filter = f
	p.records = nil
	p.offset = 0
	p.endReached = false
	p.err = nil
	p.state = StateLoadingInitial
	p.publishLocked()

	go p.fetch(p.gen, f, 0, true)
}

// LoadMore fetches the next page. A no-op while a fetch is in flight or
// after the end of the result set was reached.
func (p *Pager) LoadMore() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateLoadingInitial || p.state == StateLoadingMore || p.endReached {
		return
	}
	p.state = StateLoadingMore
	p.publishLocked()

	go p.fetch(p.gen, p.filter, p.offset, false)
}

// MaybeLoadMore triggers LoadMore when lastVisible is within the prefetch
// distance of the loaded window's end. Intended to be called by the view
// as the user scrolls.
func (p *Pager) MaybeLoadMore(lastVisible int) {
	p.mu.Lock()
	near := lastVisible >= len(p.records)-p.cfg.PrefetchDistance
	p.mu.Unlock()

	if near {
		p.LoadMore()
	}
}

// fetch loads one page and applies it unless the generation moved on.
func (p *Pager) fetch(gen uint64, f storage.Filter, offset int, initial bool) {
	var page []storage.Notification
	var err error
	if f.IsZero() {
		page, err = p.store.GetPage(p.ctx, p.cfg.PageSize, offset)
	} else {
		page, err = p.store.GetFilteredPage(p.ctx, f, p.cfg.PageSize, offset)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Superseded by a newer filter: discard.
	if gen != p.gen {
		return
	}

	if err != nil {
		p.log.Warn().Err(err).Msg("page query failed")
		p.err = err
		if initial {
			p.records = []storage.Notification{}
			p.offset = 0
		}
		p.state = StateReady
		p.publishLocked()
		return
	}

	p.err = nil
	if initial {
		p.records = page
		p.offset = len(page)
	} else {
		p.records = append(p.records, page...)
		p.offset += len(page)
	}
	if len(page) < p.cfg.PageSize {
		p.endReached = true
	}
	p.state = StateReady
	p.publishLocked()
}

// NotifyInserted signals that new records were written to the store. With
// no active filter the head page is re-fetched so fresh captures surface
// at the top; with a filter active the window stays a fixed snapshot until
// the filter changes.
func (p *Pager) NotifyInserted() {
	p.mu.Lock()
	active := !p.filter.IsZero()
	p.mu.Unlock()
	if active {
		return
	}

	select {
	case p.refreshCh <- struct{}{}:
	default: // a refresh is already pending; bursts coalesce
	}
}

// refreshLoop drains coalesced refresh requests under the rate limiter.
func (p *Pager) refreshLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.refreshCh:
		}
		if err := p.limiter.Wait(p.ctx); err != nil {
			return
		}
		p.refreshHead()
	}
}

// refreshHead replaces the loaded window with a fresh first page. Skipped
// when a filter became active or a fetch is in flight.
func (p *Pager) refreshHead() {
	p.mu.Lock()
	if !p.filter.IsZero() || p.state == StateLoadingInitial || p.state == StateLoadingMore {
		p.mu.Unlock()
		return
	}
	gen := p.gen
	p.mu.Unlock()

	page, err := p.store.GetPage(p.ctx, p.cfg.PageSize, 0)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || !p.filter.IsZero() {
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("head refresh failed")
		p.err = err
		p.publishLocked()
		return
	}

	p.err = nil
	p.records = page
	p.offset = len(page)
	p.endReached = len(page) < p.cfg.PageSize
	p.state = StateReady
	p.publishLocked()
}

// Subscribe returns a channel receiving every published snapshot until
// Unsubscribe. Slow subscribers miss intermediate snapshots rather than
// blocking the pager.
func (p *Pager) Subscribe(buffer int) chan Snapshot {
	ch := make(chan Snapshot, buffer)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (p *Pager) Unsubscribe(ch chan Snapshot) {
	if ch == nil {
		return
	}
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for i, s := range p.subs {
		if s == ch {
			last := len(p.subs) - 1
			p.subs[i] = p.subs[last]
			p.subs[last] = nil
			p.subs = p.subs[:last]
			close(ch)
			return
		}
	}
}

// snapshotLocked copies the current window.
func (p *Pager) snapshotLocked() Snapshot {
	records := make([]storage.Notification, len(p.records))
	copy(records, p.records)
	return Snapshot{
		State:      p.state,
		Filter:     p.filter,
		Records:    records,
		EndReached: p.endReached,
		Err:        p.err,
	}
}

func (p *Pager) publishLocked() {
	snap := p.snapshotLocked()
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
