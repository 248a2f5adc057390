// Package cache memoizes recent successful extractions per distributor so
// repeated comparison requests within a short window do not hammer the
// portals.
package cache

import (
	"sync"
	"time"

	"github.com/enerluz/portalex/internal/tariff"
)

type entry struct {
	result    tariff.Result
	expiresAt time.Time
}

// Cache is a TTL result cache keyed by distributor code. Reads and writes
// to different codes never block each other beyond the map lock; entries
// are copied out so callers cannot mutate cached state.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry

	now func() time.Time // test hook
}

// New returns a cache whose entries expire after ttl. A non-positive ttl
// disables caching entirely.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, m: make(map[string]entry), now: time.Now}
}

// Get returns the cached result for code, if present and unexpired.
func (c *Cache) Get(code string) (tariff.Result, bool) {
	if c == nil || c.ttl <= 0 {
		return tariff.Result{}, false
	}
	c.mu.RLock()
	e, ok := c.m[code]
	c.mu.RUnlock()
	if !ok {
		return tariff.Result{}, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry.
		if e2, ok := c.m[code]; ok && c.now().After(e2.expiresAt) {
			delete(c.m, code)
		}
		c.mu.Unlock()
		return tariff.Result{}, false
	}
	return copyResult(e.result), true
}

// Put stores a successful result for code. Failures are never cached.
func (c *Cache) Put(code string, res tariff.Result) {
	if c == nil || c.ttl <= 0 || !res.OK() {
		return
	}
	c.mu.Lock()
	c.m[code] = entry{result: copyResult(res), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the entry for code, forcing the next extraction to hit
// the portal.
func (c *Cache) Invalidate(code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.m, code)
	c.mu.Unlock()
}

func copyResult(r tariff.Result) tariff.Result {
	cp := r
	cp.Offers = make([]tariff.Offer, len(r.Offers))
	copy(cp.Offers, r.Offers)
	return cp
}
