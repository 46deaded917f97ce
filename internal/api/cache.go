package api

import (
	"os"
	"strconv"
	"sync"

	"github.com/crawlscope/crawlscope/internal/session"
)

// SessionCache is a thread-safe LRU cache of live sessions. Evicted sessions
// are resumed from the store on their next request.
type SessionCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*session.Session
	order   []string // oldest first
}

// NewSessionCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 100.
func NewSessionCache(maxSize int) *SessionCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &SessionCache{
		maxSize: maxSize,
		entries: make(map[string]*session.Session),
	}
}

// NewSessionCacheFromEnv creates a cache with size from SESSION_CACHE_SIZE env var.
func NewSessionCacheFromEnv() *SessionCache {
	size := 100
	if v := os.Getenv("SESSION_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewSessionCache(size)
}

// Get retrieves a session from the cache, or nil if not found.
func (c *SessionCache) Get(id string) *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[id]
	if !ok {
		return nil
	}

	// Move to end (most recently used)
	c.moveToEnd(id)
	return s
}

// Put adds a session to the cache, evicting the oldest if full.
func (c *SessionCache) Put(id string, s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		c.entries[id] = s
		c.moveToEnd(id)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[id] = s
	c.order = append(c.order, id)
}

// Remove drops a session from the cache.
func (c *SessionCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SessionCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}
