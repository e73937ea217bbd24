package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks catalogs served from Redis
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog reads served from Redis",
		},
		[]string{"catalog"},
	)

	// CacheMisses tracks catalogs loaded from the fallback source
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog reads that fell back to files",
		},
		[]string{"catalog"},
	)

	// CacheErrors tracks Redis operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of catalog cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
