package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisStore is the optional shared Store backend. Entries survive process
// restarts and are visible to every replica, which trades the memory store's
// zero-latency reads for cross-replica hit rates. TTL handling is delegated
// to Redis itself.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection before
// returning. keyPrefix namespaces this service's entries in a shared
// instance.
func NewRedisStore(host, port, password, keyPrefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	log.Println("✅ Redis cache backend connected")
	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

// Get implements Store
func (s *RedisStore) Get(key string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

// Set implements Store
func (s *RedisStore) Set(key string, data []byte, ttl time.Duration) {
	entry := Entry{Data: data, StoredAt: time.Now(), TTL: ttl}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.keyPrefix+key, raw, ttl).Err(); err != nil {
		log.Printf("❌ Redis cache set failed: %v", err)
	}
}

// DeletePrefix implements Store. Uses SCAN rather than KEYS so a large
// keyspace does not block the Redis event loop.
func (s *RedisStore) DeletePrefix(prefix string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed := 0
	iter := s.client.Scan(ctx, 0, s.keyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err == nil {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("❌ Redis cache invalidation scan failed: %v", err)
	}
	return removed
}

// Len implements Store. Counts this service's namespace only.
func (s *RedisStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count := 0
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

// Flush implements Store
func (s *RedisStore) Flush() {
	s.DeletePrefix("")
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	log.Println("📡 Closing Redis cache connection...")
	return s.client.Close()
}
