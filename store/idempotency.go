// Package store holds the small storage collaborators used by the services:
// payment idempotency keys and uploaded documents.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStore remembers keys that have already been processed.
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when the key was already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so the operation may be retried.
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps keys in process memory.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{keys: make(map[string]time.Time), now: time.Now}
}

// Claim implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.keys[key]; ok && (expires.IsZero() || now.Before(expires)) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	s.keys[key] = expires

	// drop expired keys while holding the lock anyway
	for k, exp := range s.keys {
		if !exp.IsZero() && !now.Before(exp) {
			delete(s.keys, k)
		}
	}
	return true, nil
}

// Release implements IdempotencyStore.
func (s *MemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// RedisIdempotencyStore implements IdempotencyStore with SETNX.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisIdempotencyStore connects to Redis and checks the connection.
func NewRedisIdempotencyStore(addr, password string, db int, logger *zap.Logger) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisIdempotencyStoreWithClient(client, logger), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, logger *zap.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "pg:idem:", logger: logger}
}

// Claim implements IdempotencyStore.
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		s.logger.Debug("idempotency key already claimed", zap.String("key", key))
	}
	return ok, nil
}

// Release implements IdempotencyStore.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Ping checks the Redis connection.
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
