package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics contains Prometheus metrics for place search and the result cache
type SearchMetrics struct {
	registry *prometheus.Registry

	searchOperationsTotal   *prometheus.CounterVec
	searchOperationDuration *prometheus.HistogramVec
	searchResultSizeHist    *prometheus.HistogramVec
	searchFilterComplexity  *prometheus.HistogramVec
	searchSharedTotal       *prometheus.CounterVec

	cacheOperationsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewSearchMetrics creates and registers new search metrics
func NewSearchMetrics(registry *prometheus.Registry) (*SearchMetrics, error) {
	m := &SearchMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SearchMetrics) initMetrics() error {
	m.searchOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gazetteer_search_operations_total",
			Help: "Total number of place searches",
		},
		[]string{"search_type", "status"}, // search_type: list, exact, detail, map
	)

	m.searchOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gazetteer_search_duration_seconds",
			Help:    "Time taken for place searches",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"search_type"},
	)

	m.searchResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gazetteer_search_result_count",
			Help:    "Number of places matching a search before pagination",
			Buckets: prometheus.ExponentialBuckets(BucketStart1, BucketFactor2, BucketCount15),
		},
		[]string{"search_type"},
	)

	m.searchFilterComplexity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gazetteer_search_filter_count",
			Help:    "Number of active criteria per search",
			Buckets: prometheus.LinearBuckets(0, 1, BucketCount12),
		},
		[]string{"search_type"},
	)

	m.searchSharedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gazetteer_search_shared_total",
			Help: "Searches answered by an identical in-flight search",
		},
		[]string{"search_type"},
	)

	m.cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gazetteer_result_cache_operations_total",
			Help: "Total number of result cache operations",
		},
		[]string{"backend", "operation", "result"}, // operation: cache_get, cache_set; result: hit, miss, success, error
	)

	m.collectors = []prometheus.Collector{
		m.searchOperationsTotal,
		m.searchOperationDuration,
		m.searchResultSizeHist,
		m.searchFilterComplexity,
		m.searchSharedTotal,
		m.cacheOperationsTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *SearchMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SearchMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordSearchOperation records a search operation
func (m *SearchMetrics) RecordSearchOperation(searchType, status string) {
	m.searchOperationsTotal.WithLabelValues(searchType, status).Inc()
}

// RecordSearchDuration records the duration of a search operation
func (m *SearchMetrics) RecordSearchDuration(searchType string, duration float64) {
	m.searchOperationDuration.WithLabelValues(searchType).Observe(duration)
}

// RecordSearchResultSize records the total match count of a search
func (m *SearchMetrics) RecordSearchResultSize(searchType string, resultSize int) {
	m.searchResultSizeHist.WithLabelValues(searchType).Observe(float64(resultSize))
}

// RecordSearchComplexity records the number of active criteria
func (m *SearchMetrics) RecordSearchComplexity(searchType string, complexity float64) {
	m.searchFilterComplexity.WithLabelValues(searchType).Observe(complexity)
}

// RecordSharedSearch records a search that joined an in-flight duplicate
func (m *SearchMetrics) RecordSharedSearch(searchType string) {
	m.searchSharedTotal.WithLabelValues(searchType).Inc()
}

// RecordCacheOperation records a result cache operation
func (m *SearchMetrics) RecordCacheOperation(backend, operation, result string) {
	m.cacheOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}
