package rules

import (
	"sync"
	"time"

	"github.com/google/cel-go/cel"
)

type cachedProgram struct {
	prog     cel.Program
	cachedAt time.Time
}

// InMemoryProgramCache is a simple in-memory implementation of ProgramCache
// Thread-safe for concurrent access
type InMemoryProgramCache struct {
	entries map[string]cachedProgram
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryProgramCache creates a new in-memory program cache
func NewInMemoryProgramCache(config CacheConfig) *InMemoryProgramCache {
	return &InMemoryProgramCache{
		entries: make(map[string]cachedProgram),
		config:  config,
		now:     time.Now,
	}
}

func (c *InMemoryProgramCache) expired(e cachedProgram) bool {
	return c.config.TTL > 0 && c.now().Sub(e.cachedAt) > c.config.TTL
}

// Get retrieves a cached program
// Returns false if the entry is missing or expired
func (c *InMemoryProgramCache) Get(source string) (cel.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[source]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.prog, true
}

// Set stores a program, evicting expired entries and then the oldest one when full
func (c *InMemoryProgramCache) Set(source string, prog cel.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[source]; !exists && c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		c.evictLocked()
	}
	c.entries[source] = cachedProgram{prog: prog, cachedAt: c.now()}
}

func (c *InMemoryProgramCache) evictLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.cachedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.cachedAt
		}
	}
	if len(c.entries) >= c.config.MaxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Invalidate clears the cache
func (c *InMemoryProgramCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cachedProgram)
}

// Len returns the number of unexpired entries
func (c *InMemoryProgramCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}
