// Package cache provides the cost-aware query result cache: pluggable
// memory/Redis storage backends, the daily spend ledger, and the caching
// strategy manager that decides when results are stored and served.
package cache

import "time"

// Entry is one cached query result with its expiry metadata.
type Entry struct {
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"stored_at"`
	TTL      time.Duration
}

// Expired reports whether the entry is past its TTL at time now.
func (e Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.StoredAt) >= e.TTL
}

// Store is the storage backend behind the cache manager. Implementations
// must be safe for concurrent use. The in-memory store is process-local;
// the Redis store shares entries across replicas.
type Store interface {
	// Get returns the entry for key, or ok=false on a miss or expiry.
	Get(key string) (Entry, bool)

	// Set stores data under key with the given TTL.
	Set(key string, data []byte, ttl time.Duration)

	// DeletePrefix removes every entry whose key starts with prefix and
	// returns the number removed.
	DeletePrefix(prefix string) int

	// Len returns the current entry count.
	Len() int

	// Flush removes all entries.
	Flush()

	// Close releases backend resources (sweep goroutines, connections).
	Close() error
}
