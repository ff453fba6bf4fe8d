package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "locksmith_search", Name: "searches_total", Help: "Total number of completed searches"})
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "locksmith_search", Name: "search_latency_seconds", Help: "Search pipeline latency in seconds"})
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "locksmith_search",
		Name:      "search_results",
		Help:      "Number of in-range providers returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})
	ProvidersLive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "locksmith_search", Name: "providers_live", Help: "Providers currently sharing a live position"})

	GeocodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "locksmith_search", Name: "geocode_failures_total", Help: "Postcode resolution failures by class"},
		[]string{"class"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "locksmith_search", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locksmith_search",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
