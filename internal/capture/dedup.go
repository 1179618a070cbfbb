package capture

import (
	"hash/fnv"
	"sync"
	"time"
)

// Fingerprint derives the dedup key for a notification from its package,
// title, and content. Only uniqueness within the dedup window matters, so
// FNV-64a is plenty.
func Fingerprint(pkg, title, content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(pkg))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return h.Sum64()
}

// Deduplicator suppresses repeat events carrying an identical fingerprint
// within a fixed window. The OS commonly reposts a notification several
// times in quick succession when it is updated.
type Deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[uint64]time.Time
}

// NewDeduplicator creates a Deduplicator with the given window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:   window,
		lastSeen: make(map[uint64]time.Time),
	}
}

// ShouldSuppress reports whether an event with this fingerprint was already
// seen within the window. When it was not, the fingerprint is recorded with
// the given time. The evict+check+record sequence runs under one lock so
// two near-simultaneous duplicates cannot both pass.
func (d *Deduplicator) ShouldSuppress(fp uint64, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, seen := range d.lastSeen {
		if now.Sub(seen) > d.window {
			delete(d.lastSeen, k)
		}
	}

	if seen, ok := d.lastSeen[fp]; ok && now.Sub(seen) <= d.window {
		return true
	}

	d.lastSeen[fp] = now
	return false
}

// Len returns the number of live fingerprints. Test hook.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}
