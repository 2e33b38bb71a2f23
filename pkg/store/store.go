// Package store adapts existing key/value stores to the cache callback triple
// used by the async client.
//
// Stores own expiry. Redis expires keys natively, SQLite keeps an expires
// column and memory checks expiry on read.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	hooks := store.Bind[Widget](store.NewRedis(redisClient), time.Minute)
//
//	w, err := client.Get(ctx, c, baseAddress, "/widgets/1", nil, hooks.Check, hooks.Set)
//	err = c.Delete(ctx, baseAddress, "/widgets/1", nil, hooks.Void)
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/http-async-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

var (
	// StoreHits tracks store hits by layer
	StoreHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_store_hits_total",
			Help: "Total number of store hits",
		},
		[]string{"layer"}, // "redis", "sqlite", "memory"
	)

	// StoreMisses tracks store misses by layer
	StoreMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_store_misses_total",
			Help: "Total number of store misses",
		},
		[]string{"layer"},
	)

	// StoreErrors tracks store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"layer", "operation"}, // "get", "set", "delete"
	)
)

// Store is a byte store with TTLs. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Hooks is a callback triple bound to a Store.
type Hooks[T any] struct {
	Check cache.CheckFunc[T]
	Set   cache.SetFunc[T]
	Void  cache.VoidFunc
}

// Bind creates the callback triple for responses of type T. Responses are
// stored as JSON inside an Entry envelope. An absent response is stored as
// JSON null and reads back as a miss.
func Bind[T any](s Store, ttl time.Duration) Hooks[T] {
	return Hooks[T]{
		Check: func(ctx context.Context, key string) (*T, error) {
			return load[T](ctx, s, key)
		},
		Set: func(ctx context.Context, resp *T, key string) error {
			return save(ctx, s, key, resp, ttl)
		},
		Void: func(ctx context.Context, key string) error {
			return s.Delete(ctx, key)
		},
	}
}

func load[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.IsExpired() || entry.IsAbsent() {
		return nil, nil
	}

	out := new(T)
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return out, nil
}

func save[T any](ctx context.Context, s Store, key string, resp *T, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	raw, err := json.Marshal(NewEntry(data, ttl))
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return s.Set(ctx, key, raw, ttl)
}
