package capture

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_DistinguishesFields(t *testing.T) {
	a := Fingerprint("pkg", "title", "content")
	b := Fingerprint("pkg", "titlecon", "tent")
	c := Fingerprint("pkg", "title", "content")

	assert.NotEqual(t, a, b, "field boundaries must matter")
	assert.Equal(t, a, c)
}

func TestShouldSuppress_WithinWindow(t *testing.T) {
	d := NewDeduplicator(3 * time.Second)
	now := time.Now()
	fp := Fingerprint("pkg", "t", "c")

	assert.False(t, d.ShouldSuppress(fp, now), "first sighting passes")
	assert.True(t, d.ShouldSuppress(fp, now.Add(1*time.Second)), "repeat inside window suppressed")
}

func TestShouldSuppress_AfterWindow(t *testing.T) {
	d := NewDeduplicator(3 * time.Second)
	now := time.Now()
	fp := Fingerprint("pkg", "t", "c")

	assert.False(t, d.ShouldSuppress(fp, now))
	assert.False(t, d.ShouldSuppress(fp, now.Add(4*time.Second)), "repeat after window passes")
}

func TestShouldSuppress_EvictsStaleEntries(t *testing.T) {
	d := NewDeduplicator(3 * time.Second)
	now := time.Now()

	for i := 0; i < 10; i++ {
		d.ShouldSuppress(Fingerprint("pkg", fmt.Sprintf("t%d", i), "c"), now)
	}
	assert.Equal(t, 10, d.Len())

	// A later event evicts everything stale in one pass.
	d.ShouldSuppress(Fingerprint("pkg", "fresh", "c"), now.Add(10*time.Second))
	assert.Equal(t, 1, d.Len())
}

func TestShouldSuppress_ConcurrentDuplicates(t *testing.T) {
	d := NewDeduplicator(3 * time.Second)
	now := time.Now()
	fp := Fingerprint("pkg", "t", "c")

	// Exactly one of N concurrent identical events may pass.
	const n = 32
	var wg sync.WaitGroup
	passed := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.ShouldSuppress(fp, now) {
				passed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(passed)

	count := 0
	for range passed {
		count++
	}
	assert.Equal(t, 1, count)
}
