package geo

import (
	"sync"
	"time"
)

// Cache TTLs. Entries older than the TTL are never returned; eviction is
// lazy, on read.
const (
	coordinateCacheTTL = 5 * time.Minute
	suggestionCacheTTL = 2 * time.Minute
)

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ttlCache is a read-mostly map keyed by normalized input. Writes are
// last-writer-wins; entries are idempotent re-derivations of the same key.
type ttlCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}

	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}
