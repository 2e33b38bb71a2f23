package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per URI fetch
	Timeout time.Duration
}

// DefaultConfig returns the default worker pool settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// FetchFunc fetches a single URI. A nil result with a nil error means the
// resource does not exist.
type FetchFunc[T any] func(ctx context.Context, uri string) (*T, error)

type result[T any] struct {
	uri  string
	data *T
	err  error
}

// FetchAll fetches every uri in parallel using a worker pool.
// Returns map of uri -> response for successful fetches. When any fetch
// fails the partial map is returned together with the first error.
func FetchAll[T any](ctx context.Context, cfg Config, uris []string, fetch FetchFunc[T]) (map[string]*T, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	results := make(map[string]*T, len(uris))
	if len(uris) == 0 {
		return results, nil
	}

	start := time.Now()
	workers := cfg.MaxConcurrency
	if workers > len(uris) {
		workers = len(uris)
	}

	log.Info().
		Str("component", "batch").
		Int("uris", len(uris)).
		Int("workers", workers).
		Msg("Starting batch fetch")

	queue := make(chan string, len(uris))
	for _, uri := range uris {
		queue <- uri
	}
	close(queue)

	out := make(chan result[T], len(uris))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, cfg.Timeout, fetch, queue, out, &wg, i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var firstErr error
	failed := 0
	for r := range out {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch %s: %w", r.uri, r.err)
			}
			continue
		}
		results[r.uri] = r.data
	}

	if firstErr == nil && ctx.Err() != nil && len(results) < len(uris) {
		firstErr = ctx.Err()
	}

	if firstErr != nil {
		log.Warn().
			Str("component", "batch").
			Err(firstErr).
			Int("fetched", len(results)).
			Int("failed", failed).
			Int("total", len(uris)).
			Msg("Batch fetch incomplete - returning partial results")
		return results, firstErr
	}

	log.Info().
		Str("component", "batch").
		Int("fetched", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker processes uris from the queue
func worker[T any](ctx context.Context, timeout time.Duration, fetch FetchFunc[T], queue <-chan string, out chan<- result[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for uri := range queue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		data, err := fetch(fetchCtx, uri)
		cancel()

		if err != nil {
			log.Debug().
				Err(err).
				Int("worker_id", workerID).
				Str("uri", uri).
				Msg("Fetch failed")
		}

		out <- result[T]{uri: uri, data: data, err: err}
		processed++
	}
}
