package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks conditional-request hits by collection
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_cache_hits_total",
			Help: "Total number of cache hits by collection",
		},
		[]string{"collection"},
	)

	// CacheMisses tracks cache misses by collection
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_cache_misses_total",
			Help: "Total number of cache misses by collection",
		},
		[]string{"collection"},
	)

	// NotModifiedResponses tracks 304 responses served without a body
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// Invalidations tracks invalidation dispatches by collection
	Invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_cache_invalidations_total",
			Help: "Total number of cache invalidations by collection",
		},
		[]string{"collection"},
	)

	// EvictedEntries tracks entries removed from the response store
	EvictedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_cache_evicted_entries_total",
			Help: "Total number of response-store entries evicted by invalidation",
		},
	)

	// StoreSize tracks the last observed entry size by store layer
	StoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "journal_cache_entry_bytes",
			Help: "Size of the most recently read response-store entry in bytes",
		},
		[]string{"layer"},
	)

	// StoreErrors tracks response-store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_cache_store_errors_total",
			Help: "Total number of response-store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)

	// WarmRequests tracks cache-warming HEAD requests issued
	WarmRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_cache_warm_requests_total",
			Help: "Total number of cache warming requests issued",
		},
	)

	// WarmFailures tracks cache-warming requests that failed and were dropped
	WarmFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_cache_warm_failures_total",
			Help: "Total number of cache warming requests that failed",
		},
	)
)
