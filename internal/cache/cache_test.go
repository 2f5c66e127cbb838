package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is an adjustable time source for deterministic TTL tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCacheGetSet(t *testing.T) {
	c := New[string](Options{})

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	c.Set("k", "v2")
	got, _ = c.Get("k")
	assert.Equal(t, "v2", got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[string](Options{MaxEntries: 3})

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	// Touch "a" so "b" becomes the least recently accessed.
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("d", "4")

	_, ok = c.Get("b")
	assert.False(t, ok, "b had the oldest lastAccess and should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
	assert.Equal(t, int64(1), c.GetStats().Evictions)
}

func TestCacheEvictionIgnoresInsertionOrder(t *testing.T) {
	c := New[int](Options{MaxEntries: 4})

	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	// Access in reverse insertion order; k3 becomes the LRU.
	for i := 0; i < 4; i++ {
		c.Get(fmt.Sprintf("k%d", 3-i))
	}

	c.Set("new", 99)

	_, ok := c.Get("k3")
	assert.False(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
}

func TestCacheTTLExpiryUsesInsertionTime(t *testing.T) {
	clock := newFakeClock()
	c := New[string](Options{TTL: time.Hour, Clock: clock.Now})

	c.Set("k", "v")

	// Reading just before expiry must not extend the lifetime.
	clock.Advance(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry expires at maxAge from insertion, not last read")
	assert.Equal(t, 0, c.Len(), "expired entry is evicted lazily on read")
}

func TestCacheHasDoesNotTouchAccessOrder(t *testing.T) {
	c := New[string](Options{MaxEntries: 2})

	c.Set("a", "1")
	c.Set("b", "2")

	// Has must not refresh "a"; the next insert still evicts it.
	assert.True(t, c.Has("a"))
	c.Set("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCachePruneExpired(t *testing.T) {
	clock := newFakeClock()
	c := New[string](Options{TTL: 10 * time.Minute, Clock: clock.Now})

	c.Set("old1", "x")
	c.Set("old2", "x")
	clock.Advance(11 * time.Minute)
	c.Set("fresh", "x")

	removed := c.PruneExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("fresh"))
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[string](Options{})

	c.Set("a", "1")
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Set("b", "2")
	c.Set("c", "3")
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{MaxSize: DefaultMaxEntries}, c.GetStats())
}

func TestCacheStats(t *testing.T) {
	c := New[string](Options{MaxEntries: 10})

	c.Set("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 10, stats.MaxSize)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, c.HitRate(), 1e-9)
}

func TestCacheExpiredReadDoesNotUpdateAccess(t *testing.T) {
	clock := newFakeClock()
	c := New[string](Options{MaxEntries: 2, TTL: time.Minute, Clock: clock.Now})

	c.Set("stale", "x")
	clock.Advance(2 * time.Minute)

	// The expired read both misses and removes the entry.
	_, ok := c.Get("stale")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Expired)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}
