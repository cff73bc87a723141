package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_etl"

// Sync outcomes recorded on SyncsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus counters, histograms, and gauges for dataset ingestion.
type Metrics struct {
	SyncsTotal      *prometheus.CounterVec // labels: outcome={success,failure}
	RecordsUpserted prometheus.Counter
	FetchDuration   prometheus.Histogram
	SyncFailures    *prometheus.CounterVec // labels: kind={MalformedUrl,UnknownReference,...,Internal}
	BatchRunning    prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Dataset syncs by outcome.",
		}, []string{"outcome"}),
		RecordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Total observation records submitted to the store.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of dataset downloads from the source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_failures_total",
			Help:      "Failed dataset syncs by error kind.",
		}, []string{"kind"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_running",
			Help:      "Number of batch syncs currently in progress.",
		}),
	}
}

// NewMetrics creates and registers all ingestion metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SyncsTotal,
		m.RecordsUpserted,
		m.FetchDuration,
		m.SyncFailures,
		m.BatchRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
