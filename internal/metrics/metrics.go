package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_searches_total",
			Help: "Total number of searches by outcome",
		},
		[]string{"outcome"}, // cached, fetched, coalesced, error
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_provider_calls_total",
			Help: "Live provider page requests",
		},
		[]string{"provider"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadfinder_search_duration_seconds",
			Help:    "Duration of searches in seconds",
			Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"cached"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfinder_cache_operations_total",
			Help: "Cache operations by result",
		},
		[]string{"op", "result"},
	)

	ResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadfinder_results_returned",
			Help:    "Number of leads returned per search",
			Buckets: []float64{0, 5, 20, 50, 100, 200, 400},
		},
	)
)

// RecordSearch updates the per-search collectors.
func RecordSearch(outcome string, cached bool, seconds float64, results int) {
	SearchesTotal.WithLabelValues(outcome).Inc()
	c := "false"
	if cached {
		c = "true"
	}
	SearchDuration.WithLabelValues(c).Observe(seconds)
	if outcome != "error" {
		ResultsReturned.Observe(float64(results))
	}
}
