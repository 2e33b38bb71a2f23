// Package metrics exposes the Prometheus registry shared by the client
// packages. Metrics are defined in their own packages (transport, cache,
// client, store, ratelimit) via promauto to avoid circular dependencies;
// this package serves them and documents the names.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the registerer every package's promauto metrics land in.
	Registry = prometheus.DefaultRegisterer

	// Gatherer reads back what Registry holds.
	Gatherer = prometheus.DefaultGatherer
)

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Transport Metrics (pkg/transport):
//   - httpclient_transport_requests_total{method, status} (Counter): Requests sent by verb and HTTP status
//   - httpclient_transport_request_duration_seconds{method} (Histogram): Round-trip duration by verb
//   - httpclient_transport_errors_total{class} (Counter): Failed requests by class (client, server, network)
//
// Cache Delegation Metrics (pkg/cache):
//   - httpclient_cache_lookups_total{result} (Counter): Cache checks by result (hit, miss)
//   - httpclient_cache_writes_total (Counter): Cache set callbacks invoked
//   - httpclient_cache_voids_total (Counter): Cache void callbacks invoked
//
// Call Metrics (pkg/client):
//   - httpclient_calls_total{method, outcome} (Counter): Verb calls by outcome (cache_hit, ok, not_found, error)
//   - httpclient_call_duration_seconds{method} (Histogram): End-to-end call duration including cache callbacks
//
// Store Metrics (pkg/store):
//   - httpclient_store_hits_total{layer} (Counter): Store hits by layer (redis, sqlite, memory)
//   - httpclient_store_misses_total{layer} (Counter): Store misses by layer
//   - httpclient_store_errors_total{layer, operation} (Counter): Store errors by layer and operation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - httpclient_rate_limit_waits_total{host} (Counter): Requests delayed by the per-host limiter
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpclient_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(httpclient_cache_lookups_total[5m]))
//
//   # Upstream Error Rate
//   rate(httpclient_transport_errors_total[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(httpclient_call_duration_seconds_bucket[5m]))
