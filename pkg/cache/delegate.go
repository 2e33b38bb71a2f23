package cache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CheckFunc looks up a cached response. Returning nil, nil signals a miss.
type CheckFunc[T any] func(ctx context.Context, key string) (*T, error)

// SetFunc stores a response under key. resp is nil when the transport
// reported the resource as not found.
type SetFunc[T any] func(ctx context.Context, resp *T, key string) error

// VoidFunc removes the entry stored under key.
type VoidFunc func(ctx context.Context, key string) error

// CheckCache consults the caller's cache before a request is sent.
// Returns nil, nil when check is nil (the headers are not inspected) or when
// check reports a miss.
func CheckCache[T any](ctx context.Context, baseAddress, uri string, headers map[string]string, check CheckFunc[T]) (*T, error) {
	if check == nil {
		return nil, nil
	}

	key, err := keyFor(baseAddress, uri, headers)
	if err != nil {
		return nil, err
	}

	cached, err := check(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache check: %w", err)
	}

	if cached == nil {
		Lookups.WithLabelValues("miss").Inc()
		log.Debug().
			Str("component", "cache").
			Str("key", key).
			Bool("cache_hit", false).
			Msg("Cache miss")
		return nil, nil
	}

	Lookups.WithLabelValues("hit").Inc()
	log.Debug().
		Str("component", "cache").
		Str("key", key).
		Bool("cache_hit", true).
		Msg("Cache hit")

	return cached, nil
}

// AddToCache hands a transport response to the caller's cache.
// A nil resp is still passed on so callers can remember known-missing
// resources.
func AddToCache[T any](ctx context.Context, resp *T, baseAddress, uri string, headers map[string]string, set SetFunc[T]) error {
	if set == nil {
		return nil
	}

	key, err := keyFor(baseAddress, uri, headers)
	if err != nil {
		return err
	}

	if err := set(ctx, resp, key); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	Writes.Inc()
	log.Debug().
		Str("component", "cache").
		Str("key", key).
		Bool("absent", resp == nil).
		Msg("Cached response")

	return nil
}

// VoidCache invalidates the endpoint-scoped entry for baseAddress and uri.
// The key never includes a resource identifier.
func VoidCache(ctx context.Context, baseAddress, uri string, void VoidFunc) error {
	if void == nil {
		return nil
	}

	key := Key("", baseAddress, uri)
	if err := void(ctx, key); err != nil {
		return fmt.Errorf("cache void: %w", err)
	}

	Voids.Inc()
	log.Debug().
		Str("component", "cache").
		Str("key", key).
		Msg("Voided cache entry")

	return nil
}
