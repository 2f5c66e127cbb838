// Package cache provides the build artifact cache: fixed-capacity LRU
// eviction combined with independent TTL expiry. Keys are content hashes or
// module specifiers, never filesystem node references, so deleting a file
// out from under an entry can not dangle.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Default policy for module/network caching.
const (
	DefaultMaxEntries = 150
	DefaultTTL        = time.Hour
)

// entry is a cached value with its two clocks. cachedAt is immutable after
// insertion and drives TTL expiry; lastAccess updates on every successful
// read and drives LRU eviction. A hot entry still expires on schedule, and a
// cold-but-unexpired entry is still first out under pressure.
type entry[V any] struct {
	key        string
	value      V
	cachedAt   time.Time
	lastAccess time.Time

	// LRU doubly-linked list pointers, most recent at head.
	prev *entry[V]
	next *entry[V]
}

// Options tunes a cache instance.
type Options struct {
	// MaxEntries caps the number of entries; 0 means DefaultMaxEntries.
	MaxEntries int
	// TTL is the absolute lifetime from insertion; 0 means DefaultTTL.
	TTL time.Duration
	// Clock overrides the time source. Tests inject a fake clock to get
	// deterministic expiry.
	Clock func() time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
}

// Cache is a thread-safe LRU+TTL cache.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	maxEntries int
	ttl        time.Duration
	clock      func() time.Time

	head *entry[V]
	tail *entry[V]

	hits      int64
	misses    int64
	evictions int64
	expired   int64
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache[V]{
		entries:    make(map[string]*entry[V]),
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		clock:      opts.Clock,
	}

	// Dummy head and tail keep list surgery branch-free.
	c.head = &entry[V]{}
	c.tail = &entry[V]{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the value for key. An entry past its TTL is evicted on read
// and reported as a miss; its lastAccess is deliberately left untouched.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	now := c.clock()
	if now.Sub(e.cachedAt) > c.ttl {
		c.removeLocked(e)
		atomic.AddInt64(&c.expired, 1)
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	c.moveToFront(e)
	e.lastAccess = now
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Set stores value under key, stamping both clocks to now. When the cache is
// at capacity and key is new, the entry with the oldest lastAccess is
// evicted first.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.cachedAt = now
		e.lastAccess = now
		c.moveToFront(e)
		return
	}

	if len(c.entries) >= c.maxEntries {
		if lru := c.tail.prev; lru != c.head {
			c.removeLocked(lru)
			atomic.AddInt64(&c.evictions, 1)
		}
	}

	e := &entry[V]{key: key, value: value, cachedAt: now, lastAccess: now}
	c.entries[key] = e
	c.addToFront(e)
}

// Has reports whether key holds an unexpired entry, without touching its
// access time.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.clock().Sub(e.cachedAt) > c.ttl {
		c.removeLocked(e)
		atomic.AddInt64(&c.expired, 1)
		return false
	}
	return true
}

// Delete removes key. It reports whether an entry was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// Clear drops every entry and resets counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
	atomic.StoreInt64(&c.expired, 0)
}

// Len returns the current number of entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PruneExpired sweeps every TTL-expired entry regardless of LRU order and
// returns the count removed. Idle-time housekeeping calls this so expiry
// does not depend on entries being read.
func (c *Cache[V]) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for _, e := range c.entries {
		if now.Sub(e.cachedAt) > c.ttl {
			c.removeLocked(e)
			removed++
		}
	}
	atomic.AddInt64(&c.expired, int64(removed))
	return removed
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache[V]) GetStats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries:   entries,
		MaxSize:   c.maxEntries,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Expired:   atomic.LoadInt64(&c.expired),
	}
}

// HitRate returns hits / (hits + misses), 0 when empty.
func (c *Cache[V]) HitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (c *Cache[V]) removeLocked(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.entries, e.key)
}

func (c *Cache[V]) addToFront(e *entry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache[V]) moveToFront(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}
