package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skisignal"

// Metrics holds the Prometheus collectors for the forecast pipeline.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: provider

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,shared}
	CacheEntries prometheus.Gauge

	RankingFailures prometheus.Counter
	RankingDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.CacheEntries,
		m.RankingFailures,
		m.RankingDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build many instances.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Forecast fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Forecast fetch duration including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_lookups_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_cache_entries",
			Help:      "Entries currently held by the forecast cache.",
		}),
		RankingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_resort_failures_total",
			Help:      "Resorts excluded from a ranking pass because their forecast failed.",
		}),
		RankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Duration of a full ranking pass across the registry.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}
