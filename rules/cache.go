package rules

import (
	"time"

	"github.com/google/cel-go/cel"
)

// ProgramCache stores planned CEL programs keyed by their transpiled source.
// This allows swapping the in-memory implementation for a shared one.
type ProgramCache interface {
	// Get returns the cached program, or false on a miss or expired entry
	Get(source string) (cel.Program, bool)

	// Set stores a program
	Set(source string, prog cel.Program)

	// Invalidate drops every entry
	Invalidate()

	// Len returns the number of live entries
	Len() int
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries
	// Set to 0 for no expiration
	TTL time.Duration

	// MaxEntries bounds the cache; the oldest entry is evicted first.
	// Set to 0 for no bound
	MaxEntries int
}

// DefaultCacheConfig returns the defaults used by NewEngine
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        0,
		MaxEntries: 1024,
	}
}
