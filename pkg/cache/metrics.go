package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookups tracks CheckFunc results by outcome
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_cache_lookups_total",
			Help: "Total number of cache lookups delegated to caller callbacks",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Writes tracks SetFunc invocations
	Writes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpclient_cache_writes_total",
			Help: "Total number of cache writes delegated to caller callbacks",
		},
	)

	// Voids tracks VoidFunc invocations
	Voids = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpclient_cache_voids_total",
			Help: "Total number of cache invalidations delegated to caller callbacks",
		},
	)
)
