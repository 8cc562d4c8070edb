// Package cache implements a TTL-keyed read-through cache.
//
// TTLs are deliberately short: long enough to collapse the N+1 reads a
// single dashboard render triggers, too short to surface stale-read bugs.
// Mutations must still invalidate synchronously; the Config Synchronizer
// re-reads the full host list after every mutation and has to see its
// effect.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value  T
	expiry time.Time
}

// Cache maps string keys to values that expire at an absolute instant.
// Stale entries are evicted lazily on the next lookup. All methods are safe
// for concurrent use.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[T]
	now     func() time.Time

	// OnHit and OnMiss, when set, are called outside error paths for
	// metrics. Set them before first use.
	OnHit  func()
	OnMiss func()
}

// New creates a cache whose entries live for ttl after Set.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.now = now
	return c
}

// Get returns the cached value for key. A value past its expiry is treated
// as absent and evicted.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.miss()
		var zero T
		return zero, false
	}
	if c.now().After(e.expiry) {
		delete(c.entries, key)
		c.miss()
		var zero T
		return zero, false
	}
	c.hit()
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key with an explicit TTL.
func (c *Cache[T]) SetTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, expiry: c.now().Add(ttl)}
}

// Invalidate removes the given keys.
func (c *Cache[T]) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// InvalidateAll removes every entry.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the number of entries, including any not yet lazily evicted.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) hit() {
	if c.OnHit != nil {
		c.OnHit()
	}
}

func (c *Cache[T]) miss() {
	if c.OnMiss != nil {
		c.OnMiss()
	}
}
