package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics contains Prometheus metrics for OSM import runs
type ImportMetrics struct {
	registry *prometheus.Registry

	importRunsTotal     *prometheus.CounterVec
	importRunDuration   prometheus.Histogram
	importFeaturesTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewImportMetrics creates and registers new import metrics
func NewImportMetrics(registry *prometheus.Registry) (*ImportMetrics, error) {
	m := &ImportMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ImportMetrics) initMetrics() error {
	m.importRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gazetteer_import_runs_total",
			Help: "Total number of import runs",
		},
		[]string{"status"},
	)

	m.importRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gazetteer_import_run_duration_seconds",
		Help:    "Time taken for an import run",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~3m
	})

	m.importFeaturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gazetteer_import_features_total",
			Help: "GeoJSON features processed by the importer",
		},
		[]string{"place_type", "outcome"}, // outcome: created, updated, skipped
	)

	m.collectors = []prometheus.Collector{
		m.importRunsTotal,
		m.importRunDuration,
		m.importFeaturesTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *ImportMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ImportMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordImportRun records the outcome and duration of an import run
func (m *ImportMetrics) RecordImportRun(status string, duration float64) {
	m.importRunsTotal.WithLabelValues(status).Inc()
	m.importRunDuration.Observe(duration)
}

// RecordImportFeature records one processed feature
func (m *ImportMetrics) RecordImportFeature(placeType, outcome string) {
	m.importFeaturesTotal.WithLabelValues(placeType, outcome).Inc()
}
