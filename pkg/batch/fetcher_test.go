package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type item struct {
	URI string
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.MaxConcurrency)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout)
	}
}

func TestFetchAll(t *testing.T) {
	uris := make([]string, 25)
	for i := range uris {
		uris[i] = fmt.Sprintf("/items/%d", i)
	}

	results, err := FetchAll(context.Background(), Config{MaxConcurrency: 4}, uris,
		func(ctx context.Context, uri string) (*item, error) {
			return &item{URI: uri}, nil
		})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(results) != len(uris) {
		t.Fatalf("got %d results, want %d", len(results), len(uris))
	}
	for _, uri := range uris {
		if results[uri] == nil || results[uri].URI != uri {
			t.Errorf("results[%s] = %+v", uri, results[uri])
		}
	}
}

func TestFetchAll_Empty(t *testing.T) {
	results, err := FetchAll(context.Background(), DefaultConfig(), nil,
		func(ctx context.Context, uri string) (*item, error) {
			t.Fatal("fetch should not be called")
			return nil, nil
		})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestFetchAll_KeepsAbsent(t *testing.T) {
	results, err := FetchAll(context.Background(), DefaultConfig(), []string{"/a", "/missing"},
		func(ctx context.Context, uri string) (*item, error) {
			if uri == "/missing" {
				return nil, nil
			}
			return &item{URI: uri}, nil
		})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	v, ok := results["/missing"]
	if !ok {
		t.Fatal("absent result should be kept in the map")
	}
	if v != nil {
		t.Errorf("results[/missing] = %+v, want nil", v)
	}
}

func TestFetchAll_PartialError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	results, err := FetchAll(context.Background(), Config{MaxConcurrency: 2}, []string{"/a", "/b", "/c"},
		func(ctx context.Context, uri string) (*item, error) {
			calls.Add(1)
			if uri == "/b" {
				return nil, boom
			}
			return &item{URI: uri}, nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
	if calls.Load() != 3 {
		t.Errorf("fetch called %d times, want 3", calls.Load())
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2 partial results", len(results))
	}
	if _, ok := results["/b"]; ok {
		t.Error("failed uri should not appear in results")
	}
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	const limit = 3
	var mu sync.Mutex
	active, peak := 0, 0

	uris := make([]string, 20)
	for i := range uris {
		uris[i] = fmt.Sprintf("/%d", i)
	}

	_, err := FetchAll(context.Background(), Config{MaxConcurrency: limit}, uris,
		func(ctx context.Context, uri string) (*item, error) {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return &item{}, nil
		})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if peak > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak, limit)
	}
}

func TestFetchAll_PerItemTimeout(t *testing.T) {
	_, err := FetchAll(context.Background(), Config{MaxConcurrency: 1, Timeout: 20 * time.Millisecond}, []string{"/slow"},
		func(ctx context.Context, uri string) (*item, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := FetchAll(ctx, Config{MaxConcurrency: 1}, []string{"/a", "/b"},
		func(ctx context.Context, uri string) (*item, error) {
			return &item{URI: uri}, nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
