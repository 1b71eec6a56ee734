package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache lookups partitioned by outcome: hit, miss, error
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorty_cache_lookups_total",
			Help: "Cache lookups partitioned by outcome",
		},
		[]string{"outcome"},
	)

	// Rate limit decisions partitioned by key prefix and decision
	rateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shorty_rate_limit_decisions_total",
			Help: "Rate limiter decisions partitioned by key prefix and decision",
		},
		[]string{"prefix", "decision"},
	)
)
