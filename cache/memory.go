package cache

import (
	"strings"
	"sync"
	"time"
)

// MemoryStore is the default process-local Store: a mutex-guarded map with
// TTL expiry and a hard entry bound. Eviction is insertion-order (oldest
// entry first), not LRU; hits do not reorder entries. Expired entries are
// dropped lazily on read and by a periodic sweep.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]Entry
	order      []string // insertion order, oldest first
	maxEntries int

	stopSweep chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a bounded in-memory store. A sweepInterval of zero
// disables the background sweep; lazy expiry on read still applies.
func NewMemoryStore(maxEntries int, sweepInterval time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	s := &MemoryStore{
		entries:    make(map[string]Entry),
		order:      make([]string, 0, maxEntries),
		maxEntries: maxEntries,
		stopSweep:  make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Get implements Store
func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	if entry.Expired(time.Now()) {
		s.remove(key)
		return Entry{}, false
	}
	return entry, true
}

// Set implements Store. Overwriting an existing key keeps its original
// position in the eviction order.
func (s *MemoryStore) Set(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		for len(s.entries) >= s.maxEntries && len(s.order) > 0 {
			s.remove(s.order[0])
		}
		s.order = append(s.order, key)
	}
	s.entries[key] = Entry{Data: data, StoredAt: time.Now(), TTL: ttl}
}

// DeletePrefix implements Store
func (s *MemoryStore) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.remove(key)
			removed++
		}
	}
	return removed
}

// Len implements Store
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush implements Store
func (s *MemoryStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.order = s.order[:0]
}

// Close stops the background sweep goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopSweep) })
	return nil
}

// remove deletes key from the map and the order slice. Caller holds the lock.
func (s *MemoryStore) remove(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.Expired(now) {
			s.remove(key)
		}
	}
}
