package cache

import (
	"sync"
	"time"
)

// Cache is a small TTL cache with a generation counter. Invalidate bumps the
// generation, and SetIfCurrent drops values computed before the bump, so a
// slow read racing a write cannot repopulate stale data.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	gen uint64
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

// Generation returns the token to pass to SetIfCurrent.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfCurrent stores val only if no Invalidate happened since gen was read.
func (c *Cache) SetIfCurrent(gen uint64, key string, val any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}

	c.m[key] = entry{val: val, exp: c.now().Add(c.ttl)}
	return true
}

// Invalidate drops every entry and starts a new generation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
