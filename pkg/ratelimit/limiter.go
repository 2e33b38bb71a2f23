// Package ratelimit paces outbound requests per downstream host.
// It only delays requests; it never retries or rejects them on its own.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpclient_rate_limit_waits_total",
		Help: "Total number of requests delayed by the per-host rate limiter",
	}, []string{"host"})
)

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond per host. Zero or negative disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once (minimum 1).
	Burst int
}

// Limiter keeps one token bucket per host.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   Config
	logger   zerolog.Logger
}

// New creates a limiter. Returns nil when pacing is disabled; a nil *Limiter
// is valid and never blocks.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
		logger:   logger,
	}
}

// forHost returns the bucket for host, creating it on first use.
func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.limiters[host] = lim
	}
	return lim
}

// Allow reports whether a request to host may be sent right now and
// consumes a token if so.
func (l *Limiter) Allow(host string) bool {
	if l == nil {
		return true
	}
	return l.forHost(host).Allow()
}

// Wait blocks until a request to host may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}

	lim := l.forHost(host)
	if lim.Allow() {
		return nil
	}

	rateLimitWaitsTotal.WithLabelValues(host).Inc()
	l.logger.Debug().
		Str("host", host).
		Float64("requests_per_second", l.config.RequestsPerSecond).
		Msg("Rate limit reached - delaying request")

	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Hosts returns the number of hosts with an active bucket.
func (l *Limiter) Hosts() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
