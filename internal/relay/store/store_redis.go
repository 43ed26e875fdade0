package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var getDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "relay_store_get_duration_ms",
	Help:    "Latency of relay slot reads in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const slotKeyPrefix = "relay:sid:"

// RedisStore is the production-recommended backend for distributed deployments
// where the submitting and polling requests may land on different instances.
// Redis string commands give the per-key atomicity the slot contract needs, and
// the key TTL provides the expiry safety net natively.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed relay store. ttl <= 0 stores slots
// without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Put stores the payload under sid, overwriting any previous value and
// refreshing the TTL. SET is atomic, so a Get racing with a Put observes
// either the old or the new payload, never a torn write.
func (s *RedisStore) Put(ctx context.Context, sid, payload string) error {
	if err := s.client.Set(ctx, slotKeyPrefix+sid, payload, s.expiry()).Err(); err != nil {
		return fmt.Errorf("put relay slot: %w", err)
	}
	return nil
}

// Get reads the slot. A missing key (never written, deleted, or expired) is a
// normal miss, not an error.
func (s *RedisStore) Get(ctx context.Context, sid string) (string, bool, error) {
	start := time.Now()
	defer func() {
		getDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	payload, err := s.client.Get(ctx, slotKeyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get relay slot: %w", err)
	}
	return payload, true, nil
}

// Delete removes the slot. DEL on a missing key is already a no-op.
func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, slotKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("delete relay slot: %w", err)
	}
	return nil
}

// Health pings the backing Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) expiry() time.Duration {
	if s.ttl > 0 {
		return s.ttl
	}
	return 0 // redis: zero means no expiration
}
