package cache

import (
	"context"
	"slices"
	"sync"
)

const defaultMaxEntries = 10_000

// Compile-time assertion that MemCache satisfies the Cache interface.
var _ Cache = (*MemCache)(nil)

// MemCache is a thread-safe, bounded, in-memory implementation of [Cache].
// When full, the oldest inserted entry is evicted.
type MemCache struct {
	mu      sync.RWMutex
	max     int
	entries map[string][]byte
	order   []string
}

// NewMemCache returns a [MemCache] holding at most maxEntries results. A
// non-positive maxEntries selects the default of 10000.
func NewMemCache(maxEntries int) *MemCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemCache{
		max:     maxEntries,
		entries: make(map[string][]byte),
	}
}

// Get implements [Cache.Get].
func (c *MemCache) Get(_ context.Context, key Key) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	payload, ok := c.entries[key.Digest()]
	if !ok {
		return nil, ErrMiss
	}
	return slices.Clone(payload), nil
}

// Put implements [Cache.Put].
func (c *MemCache) Put(_ context.Context, key Key, payload []byte) error {
	d := key.Digest()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[d]; !exists {
		for len(c.order) >= c.max {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, d)
	}
	c.entries[d] = slices.Clone(payload)
	return nil
}

// Len returns the number of cached entries.
func (c *MemCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
