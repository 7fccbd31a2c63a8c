package refresher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "esikit_refresher_runs_total",
		Help: "Completed refresh sweeps, including panicked ones.",
	})

	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esikit_refresher_refreshes_total",
			Help: "Per-credential refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(runsTotal, refreshesTotal)
	})
}
