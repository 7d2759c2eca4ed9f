// Package cache provides a bounded TTL cache used to absorb repeat
// lookups against rate-limited upstreams.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Injected so tests control expiry.
type Clock func() time.Time

// Cache is a bounded, TTL-based key-value cache. When full, the entry
// closest to expiry is evicted.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	max     int
	now     Clock
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most max entries for ttl each.
func New[V any](max int, ttl time.Duration, now Clock) *Cache[V] {
	if max <= 0 {
		max = 128
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		max:     max,
		now:     now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, evicting the soonest-to-expire entry when
// the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictLocked(now)
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Len returns the number of entries, counting expired ones not yet
// swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) evictLocked(now time.Time) {
	var victim string
	var victimExpiry time.Time
	first := true

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			return
		}
		if first || e.expiresAt.Before(victimExpiry) {
			victim = k
			victimExpiry = e.expiresAt
			first = false
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
