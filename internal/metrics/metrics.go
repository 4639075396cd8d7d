// Package metrics registers the engine's Prometheus collectors:
//
//	allday_cache_lookups_total{result}
//	allday_cache_entries
//	allday_materialized_results_total{kind}
//	allday_materialize_duration_seconds
//	allday_pack_draws_total{pack_type}
//	http_requests_total{method,route,status}
//	http_request_duration_seconds{method,route,status}
//
// The default registry also carries the go_* and process_* collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allday_cache_lookups_total",
			Help: "Memo cache lookups partitioned by hit or miss",
		},
		[]string{"result"},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "allday_cache_entries",
			Help: "Entries currently held by the memo cache",
		},
	)

	materialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allday_materialized_results_total",
			Help: "Results written by materialization runs",
		},
		[]string{"kind"},
	)

	materializeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allday_materialize_duration_seconds",
			Help:    "Wall time of full materialization runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	packDraws = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allday_pack_draws_total",
			Help: "Bundles served from sample banks",
		},
		[]string{"pack_type"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// CacheHit counts a memo hit
func CacheHit() { cacheLookups.WithLabelValues("hit").Inc() }

// CacheMiss counts a memo miss
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

// SetCacheEntries reports the current cache size
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// Materialized counts n results of one kind
func Materialized(kind string, n int) { materialized.WithLabelValues(kind).Add(float64(n)) }

// ObserveMaterialize records how long a run took
func ObserveMaterialize(d time.Duration) { materializeDuration.Observe(d.Seconds()) }

// PackDrawn counts a served bundle
func PackDrawn(packType string) { packDraws.WithLabelValues(packType).Inc() }

// ObserveRequest records one served HTTP request
func ObserveRequest(method, route, status string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
