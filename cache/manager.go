package cache

import (
	"log"
	"sync/atomic"
	"time"

	"gridiron-datastore/config"
	"gridiron-datastore/database/types"
)

// Strategy decides when query results are cached and served from cache.
type Strategy string

const (
	// StrategyNever bypasses the cache entirely.
	StrategyNever Strategy = "never"
	// StrategyAlways caches every eligible result.
	StrategyAlways Strategy = "always"
	// StrategySmart caches only once daily spend crosses the configured
	// fraction of the budget, keeping the cache cheap while money is cheap.
	StrategySmart Strategy = "smart"
)

// ParseStrategy maps a config/request string to a Strategy, falling back to
// the given default for unknown values.
func ParseStrategy(s string, fallback Strategy) Strategy {
	switch Strategy(s) {
	case StrategyNever, StrategyAlways, StrategySmart:
		return Strategy(s)
	default:
		return fallback
	}
}

// Manager ties a Store, the spend Ledger, and the caching strategy together.
// It owns cache key construction so every caller derives identical keys for
// equivalent queries.
type Manager struct {
	store  Store
	ledger *Ledger

	defaultStrategy Strategy
	smartFraction   float64
	ttl             time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager creates a cache manager over the given backend and ledger.
func NewManager(store Store, ledger *Ledger, cfg config.CacheConfig) *Manager {
	return &Manager{
		store:           store,
		ledger:          ledger,
		defaultStrategy: ParseStrategy(cfg.Strategy, StrategySmart),
		smartFraction:   cfg.SmartFraction,
		ttl:             time.Duration(cfg.TTLSeconds) * time.Second,
	}
}

// BuildKey derives the deterministic cache key for one query. The entity
// name leads the key so invalidation can drop everything for an entity type
// with one prefix delete; the filter fields are canonically sorted so field
// assembly order never changes the key.
func (m *Manager) BuildKey(req types.QueryRequest) string {
	return req.Entity.String() + ":" + string(req.Mode) + ":" + req.Filters.CanonicalKey()
}

// ShouldCache reports whether a result for this request would be stored and
// served from cache. The request-level strategy override wins over the
// configured default.
func (m *Manager) ShouldCache(override string) bool {
	strategy := m.defaultStrategy
	if override != "" {
		strategy = ParseStrategy(override, m.defaultStrategy)
	}

	switch strategy {
	case StrategyNever:
		return false
	case StrategyAlways:
		return true
	default:
		return m.ledger.Fraction() >= m.smartFraction
	}
}

// Lookup returns the cached payload for key, tracking hit/miss counts.
func (m *Manager) Lookup(key string) ([]byte, bool) {
	entry, ok := m.store.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.Data, true
}

// Remember stores a query result under key with the configured TTL.
func (m *Manager) Remember(key string, data []byte) {
	m.store.Set(key, data, m.ttl)
}

// Invalidate drops every cached result for the given entity type. Runs in
// one prefix delete regardless of how many queries are cached.
func (m *Manager) Invalidate(entity types.EntityType) {
	if removed := m.store.DeletePrefix(entity.String() + ":"); removed > 0 {
		log.Printf("ℹ️ Cache invalidated %d entries for %s", removed, entity)
	}
}

// Stats returns cumulative hit/miss counts and the current entry count.
func (m *Manager) Stats() (hits, misses int64, entries int) {
	return m.hits.Load(), m.misses.Load(), m.store.Len()
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
