// Package cache is a thin JSON cache over Redis. A nil or disconnected
// *Store is valid and behaves as an always-miss cache, so the API keeps
// working when Redis is down.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/giftkart/config"
	"github.com/shashiranjanraj/giftkart/pkg/metrics"
)

// Store wraps a redis client. Keys are expected as "<keyspace>:<rest>";
// the keyspace labels hit/miss metrics.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Connect dials REDIS_ADDR and verifies the connection with a ping.
// On failure it returns an always-miss store together with the error, so the
// caller can log a warning and carry on.
func Connect(ctx context.Context) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return &Store{}, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// Enabled reports whether a live redis client backs the store.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// Client exposes the redis client for the queue driver. Nil when disabled.
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.rdb
}

// Get unmarshals the value at key into dest. Returns true on a hit.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.Enabled() {
		return false
	}

	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil || json.Unmarshal(val, dest) != nil {
		metrics.CacheMisses.WithLabelValues(keyspace(key)).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(keyspace(key)).Inc()
	return true
}

// Set stores value under key for ttl.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// SetNX stores value only when key is absent. Returns false when the key
// already existed, or when the store is disabled.
func (s *Store) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, data, ttl).Result()
}

// Del removes one or more keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	err := s.rdb.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Close releases the client.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Close()
}

func keyspace(key string) string {
	ks, _, _ := strings.Cut(key, ":")
	return ks
}
