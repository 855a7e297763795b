package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// weather ETL pipeline.
type Metrics struct {
	LocationsAttempted prometheus.Counter
	ObservationsLoaded prometheus.Counter
	ExtractFailures    *prometheus.CounterVec // label: kind={network,timeout,upstream,parse,other}
	ValidationFailures prometheus.Counter
	DuplicatesSkipped  prometheus.Counter
	StoreErrors        prometheus.Counter

	ExtractDuration prometheus.Histogram
	BatchRunning    prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		LocationsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "locations_attempted_total",
			Help:      "Total locations fed into the pipeline.",
		}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "observations_loaded_total",
			Help:      "Total observations persisted to the store.",
		}),
		ExtractFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "extract_failures_total",
			Help:      "Extraction failures by classified kind.",
		}, []string{"kind"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "validation_failures_total",
			Help:      "Records rejected by range or presence validation.",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "duplicates_skipped_total",
			Help:      "Records deliberately dropped as near-duplicates.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "store_errors_total",
			Help:      "Store operations that failed for one load.",
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "extract_duration_seconds",
			Help:      "Duration of one upstream fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "batch_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.LocationsAttempted,
		m.ObservationsLoaded,
		m.ExtractFailures,
		m.ValidationFailures,
		m.DuplicatesSkipped,
		m.StoreErrors,
		m.ExtractDuration,
		m.BatchRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to
// avoid "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		LocationsAttempted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "locations_attempted_total"}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "observations_loaded_total"}),
		ExtractFailures:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "extract_failures_total"}, []string{"kind"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "validation_failures_total"}),
		DuplicatesSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "duplicates_skipped_total"}),
		StoreErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "store_errors_total"}),
		ExtractDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "extract_duration_seconds"}),
		BatchRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "batch_running"}),
	}
}
