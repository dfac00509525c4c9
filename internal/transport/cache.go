package transport

import (
	"sync"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// Cache keeps decoded sessions for a short time. Entries must expire before
// the signed audio URLs inside them do.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	s       *session.Session
	expires time.Time
}

// NewCache returns a cache with the given TTL. A non-positive TTL disables it.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *Cache) Get(id string) (*session.Session, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return nil, false
	}
	return e.s, true
}

func (c *Cache) Put(id string, s *session.Session) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cacheEntry{s: s, expires: c.now().Add(c.ttl)}
}

func (c *Cache) Invalidate(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
