// Package client provides the async HTTP client: uniform GET/POST/PUT/DELETE
// calls with optional, caller-supplied caching.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/http-async-client/pkg/cache"
	"github.com/Sternrassler/http-async-client/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client calls.
var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpclient_calls_total",
		Help: "Total client calls by method and outcome",
	}, []string{"method", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpclient_call_duration_seconds",
		Help:    "Client call duration in seconds by method, cache hits included",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})
)

// Call outcomes used as metric labels.
const (
	outcomeCacheHit = "cache_hit"
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Transport performs one downstream round trip. *transport.Invoker
// implements it.
type Transport interface {
	Do(ctx context.Context, method transport.Method, baseAddress, uri string, body any, headers map[string]string) (*transport.Response, error)
}

// Client is the async HTTP client. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	transport Transport
	invoker   *transport.Invoker
	config    Config
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Transport configures the shared HTTP transport.
	Transport transport.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		Transport: transport.DefaultConfig(userAgent),
	}
}

// New creates a new client backed by a shared transport.Invoker.
func New(cfg Config) (*Client, error) {
	if cfg.Transport.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Transport.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Transport.Timeout)
	}

	if cfg.Transport.RateLimit.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("rate limit must be >= 0 (got %v)", cfg.Transport.RateLimit.RequestsPerSecond)
	}

	invoker := transport.New(cfg.Transport)

	return &Client{
		transport: invoker,
		invoker:   invoker,
		config:    cfg,
		logger:    log.With().Str("component", "http-client").Logger(),
	}, nil
}

// NewWithTransport creates a client around a custom transport.
func NewWithTransport(t Transport) *Client {
	return &Client{
		transport: t,
		logger:    log.With().Str("component", "http-client").Logger(),
	}
}

// SetHTTPClient replaces the shared HTTP client (for testing or custom
// transports). It has no effect on a client built with NewWithTransport.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	if c.invoker != nil {
		c.invoker.SetHTTPClient(httpClient)
	}
}

// Close releases resources held by the underlying transport.
func (c *Client) Close() error {
	if c.invoker != nil {
		return c.invoker.Close()
	}
	return nil
}

// Get performs a GET call.
//
// check runs first with an identifier-free key; on a hit the cached value is
// returned and no request is sent. On a miss the response (nil for 404) is
// handed to set before being returned.
func Get[T any](ctx context.Context, c *Client, baseAddress, uri string, headers map[string]string,
	check cache.CheckFunc[T], set cache.SetFunc[T]) (*T, error) {
	return cachedCall(ctx, c, transport.MethodGet, baseAddress, uri, nil, headers, nil, check, set)
}

// Post performs a POST call with request as JSON body.
//
// When a cache callback is supplied together with headers, headers must carry
// a non-empty x-resource-identifier which becomes part of the cache key.
func Post[Req, T any](ctx context.Context, c *Client, baseAddress, uri string, request Req, headers map[string]string,
	check cache.CheckFunc[T], set cache.SetFunc[T]) (*T, error) {
	return cachedCall(ctx, c, transport.MethodPost, baseAddress, uri, request, headers, headers, check, set)
}

// Put performs a PUT call. It follows the same caching rules as Post.
func Put[Req, T any](ctx context.Context, c *Client, baseAddress, uri string, request Req, headers map[string]string,
	check cache.CheckFunc[T], set cache.SetFunc[T]) (*T, error) {
	return cachedCall(ctx, c, transport.MethodPut, baseAddress, uri, request, headers, headers, check, set)
}

// Delete performs a DELETE call and then invalidates the endpoint-scoped
// cache entry through void. Any response body is discarded. Cache is never
// consulted before the request.
func (c *Client) Delete(ctx context.Context, baseAddress, uri string, headers map[string]string, void cache.VoidFunc) error {
	method := transport.MethodDelete

	startTime := time.Now()
	defer func() {
		callDuration.WithLabelValues(string(method)).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.transport.Do(ctx, method, baseAddress, uri, nil, headers)
	if err != nil {
		c.fail(method, baseAddress, uri, err)
		return err
	}

	if err := cache.VoidCache(ctx, baseAddress, uri, void); err != nil {
		c.fail(method, baseAddress, uri, err)
		return err
	}

	c.record(method, baseAddress, uri, outcomeFor(resp != nil))
	return nil
}

// cachedCall runs check -> transport -> set for GET, POST and PUT.
// cacheHeaders is what the delegate sees: nil for GET, the caller's headers
// otherwise.
func cachedCall[T any](ctx context.Context, c *Client, method transport.Method, baseAddress, uri string,
	body any, headers, cacheHeaders map[string]string, check cache.CheckFunc[T], set cache.SetFunc[T]) (*T, error) {
	startTime := time.Now()
	defer func() {
		callDuration.WithLabelValues(string(method)).Observe(time.Since(startTime).Seconds())
	}()

	cached, err := cache.CheckCache(ctx, baseAddress, uri, cacheHeaders, check)
	if err != nil {
		c.fail(method, baseAddress, uri, err)
		return nil, err
	}
	if cached != nil {
		c.record(method, baseAddress, uri, outcomeCacheHit)
		return cached, nil
	}

	resp, err := c.transport.Do(ctx, method, baseAddress, uri, body, headers)
	if err != nil {
		c.fail(method, baseAddress, uri, err)
		return nil, err
	}

	result, err := transport.Decode[T](resp)
	if err != nil {
		c.fail(method, baseAddress, uri, err)
		return nil, err
	}

	if err := cache.AddToCache(ctx, result, baseAddress, uri, cacheHeaders, set); err != nil {
		c.fail(method, baseAddress, uri, err)
		return nil, err
	}

	c.record(method, baseAddress, uri, outcomeFor(resp != nil))
	return result, nil
}

func outcomeFor(found bool) string {
	if found {
		return outcomeOK
	}
	return outcomeNotFound
}

// record logs and counts a completed call.
func (c *Client) record(method transport.Method, baseAddress, uri, outcome string) {
	callsTotal.WithLabelValues(string(method), outcome).Inc()
	c.logger.Debug().
		Str("method", string(method)).
		Str("base_address", baseAddress).
		Str("uri", uri).
		Str("outcome", outcome).
		Bool("cache_hit", outcome == outcomeCacheHit).
		Msg("Call completed")
}

// fail logs and counts a failed call.
func (c *Client) fail(method transport.Method, baseAddress, uri string, err error) {
	callsTotal.WithLabelValues(string(method), outcomeError).Inc()
	c.logger.Warn().
		Err(err).
		Str("method", string(method)).
		Str("base_address", baseAddress).
		Str("uri", uri).
		Msg("Call failed")
}
