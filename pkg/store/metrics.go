package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache operation labels.
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opPrune  = "prune"
	opDecode = "decode"
	opEncode = "encode"
)

var (
	// CacheHits counts pages served from Redis.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagetracker_cache_hits_total",
			Help: "Total number of pages served from the Redis cache",
		},
	)

	// CacheMisses counts lookups that fell through to the backend.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagetracker_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// CacheErrors counts failed cache operations.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagetracker_cache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "prune", "decode", "encode"
	)

	// PrunedKeys counts page keys removed by Prune.
	PrunedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagetracker_cache_pruned_keys_total",
			Help: "Total number of cached pages removed by pruning",
		},
	)
)
