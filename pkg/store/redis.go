package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const layerRedis = "redis"

// Redis stores entries in Redis with native key expiry.
type Redis struct {
	redis  *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed store. Keys are stored under the
// "httpclient:" prefix.
func NewRedis(redisClient *redis.Client) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{
		redis:  redisClient,
		prefix: "httpclient:",
	}
}

// Get retrieves the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.redis.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			StoreMisses.WithLabelValues(layerRedis).Inc()
			return nil, false, nil
		}
		StoreErrors.WithLabelValues(layerRedis, "get").Inc()
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	StoreHits.WithLabelValues(layerRedis).Inc()
	return data, true, nil
}

// Set stores value under key. Redis removes it once ttl elapses.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := r.redis.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		StoreErrors.WithLabelValues(layerRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.prefix+key).Err(); err != nil {
		StoreErrors.WithLabelValues(layerRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
