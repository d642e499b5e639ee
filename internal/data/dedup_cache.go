package data

import (
	"sync"
	"time"

	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// DefaultDedupTTL is how long an admitted platform message id is remembered
const DefaultDedupTTL = 5 * time.Minute

// dedupCache is a mutex-guarded map of platform message id -> expiry
type dedupCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewDedupCache creates the process-wide dedup cache
func NewDedupCache(ttl time.Duration) repo.DedupCache {
	return newDedupCache(ttl, time.Now)
}

func newDedupCache(ttl time.Duration, now func() time.Time) *dedupCache {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &dedupCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     now,
	}
}

// Seen reports an unexpired entry; expired entries are dropped on read
func (c *dedupCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(id)
}

// Reserve checks and writes in one critical section
func (c *dedupCache) Reserve(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.liveLocked(id) {
		return false
	}
	c.entries[id] = c.now().Add(c.ttl)
	return true
}

// Release forgets id so a later redelivery can be admitted
func (c *dedupCache) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Sweep removes expired entries
func (c *dedupCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for id, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not
func (c *dedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *dedupCache) liveLocked(id string) bool {
	exp, ok := c.entries[id]
	if !ok {
		return false
	}
	if !c.now().Before(exp) {
		delete(c.entries, id)
		return false
	}
	return true
}
