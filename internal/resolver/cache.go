package resolver

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached resolution stays valid.
const DefaultCacheTTL = 5 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	res       Resolution
	expiresAt time.Time
}

// Cache is a key→resolution map with a fixed TTL. Expired entries are
// dropped when read and by Sweep; there is no size bound.
type Cache struct {
	clock Clock
	ttl   time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

func NewCache(clock Clock, ttl time.Duration) *Cache {
	if clock == nil {
		clock = realClock{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{clock: clock, ttl: ttl, items: make(map[string]cacheEntry)}
}

// Key normalizes a query into a cache key.
func Key(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func (c *Cache) Get(key string) (Resolution, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return Resolution{}, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		// re-check: a concurrent Put may have refreshed it
		if cur, ok := c.items[key]; ok && !now.Before(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return Resolution{}, false
	}
	return e.res, true
}

// Put stores res under key. Last write wins.
func (c *Cache) Put(key string, res Resolution) {
	c.mu.Lock()
	c.items[key] = cacheEntry{res: res, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Sweep removes expired entries and reports how many were dropped.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
