package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "afd_terms"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	// Archive retrieval metrics.
	ArchiveRequests      *prometheus.CounterVec // labels: outcome={success,error,status}
	ArchiveFetchDuration prometheus.Histogram
	FetchCache           *prometheus.CounterVec // labels: result={extracted,archive,miss}

	// Counting metrics.
	DocumentsProcessed prometheus.Counter
	YearsMissing       prometheus.Counter
	YearsInFlight      prometheus.Gauge

	// Office and region metrics.
	OfficesProcessed *prometheus.CounterVec // labels: source={store,computed}
	OfficeDuration   prometheus.Histogram
	SinkErrors       *prometheus.CounterVec // labels: sink
	RunActive        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ArchiveRequests,
		m.ArchiveFetchDuration,
		m.FetchCache,
		m.DocumentsProcessed,
		m.YearsMissing,
		m.YearsInFlight,
		m.OfficesProcessed,
		m.OfficeDuration,
		m.SinkErrors,
		m.RunActive,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchiveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_requests_total",
			Help:      "AFOS archive requests by outcome.",
		}, []string{"outcome"}),
		ArchiveFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_fetch_duration_seconds",
			Help:      "AFOS archive request duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Yearly fetch cache lookups by result.",
		}, []string{"result"}),
		DocumentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Total AFD documents counted.",
		}),
		YearsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_missing_total",
			Help:      "Office years that could not be retrieved or extracted.",
		}),
		YearsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "years_in_flight",
			Help:      "Year tasks currently running.",
		}),
		OfficesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offices_processed_total",
			Help:      "Offices processed by table source.",
		}, []string{"source"}),
		OfficeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "office_duration_seconds",
			Help:      "Time to aggregate every year of one office.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Combined-row sink failures by sink.",
		}, []string{"sink"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "1 while a region run is in progress.",
		}),
	}
}
