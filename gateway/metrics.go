package gateway

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esikit_gateway_requests_total",
			Help: "Upstream API requests by outcome.",
		},
		[]string{"outcome"},
	)

	cacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esikit_gateway_cache_errors_total",
			Help: "Cache IO failures tolerated by the gateway.",
		},
		[]string{"op"},
	)

	registerOnce sync.Once
)

// Outcome labels for requestsTotal.
const (
	outcomeCacheHit    = "cache_hit"
	outcomeRevalidated = "revalidated"
	outcomeFetched     = "fetched"
	outcomeUpstreamErr = "upstream_error"
	outcomeRateLimited = "rate_limited"
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, cacheErrorsTotal)
	})
}
