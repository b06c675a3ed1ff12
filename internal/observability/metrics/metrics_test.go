package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestSearchMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewSearchMetrics(registry)
	require.NoError(t, err)

	m.RecordSearchOperation(LabelSearchList, StatusSuccess)
	m.RecordSearchOperation(LabelSearchList, StatusSuccess)
	m.RecordSearchOperation(LabelSearchExact, StatusError)
	m.RecordSearchDuration(LabelSearchList, 0.012)
	m.RecordSearchResultSize(LabelSearchList, 42)
	m.RecordSearchComplexity(LabelSearchList, 3)
	m.RecordSharedSearch(LabelSearchList)
	m.RecordCacheOperation("memory", OpCacheGet, LabelHit)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.searchOperationsTotal.WithLabelValues(LabelSearchList, StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.searchOperationsTotal.WithLabelValues(LabelSearchExact, StatusError)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.searchSharedTotal.WithLabelValues(LabelSearchList)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.cacheOperationsTotal.WithLabelValues("memory", OpCacheGet, LabelHit)), 0)

	mf := findFamily(t, registry, "gazetteer_search_result_count")
	require.Len(t, mf.GetMetric(), 1)
	h := mf.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), h.GetSampleCount())
	assert.InDelta(t, 42.0, h.GetSampleSum(), 0)
}

func TestSearchMetricsDoubleRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewSearchMetrics(registry)
	require.NoError(t, err)

	_, err = NewSearchMetrics(registry)
	assert.Error(t, err)
}

func TestDatastoreMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	m.RecordDbOperation(OpDbQuery, "places", StatusSuccess)
	m.RecordDbOperationDuration(OpDbQuery, "places", 0.002)
	m.RecordDbOperationError(OpDbInsert, "names", "constraint")
	m.RecordQueryResultSize(OpDbQuery, "places", 20)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues(OpDbQuery, "places", StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues(OpDbInsert, "names", "constraint")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.dbQueryResultSizeHist))

	m.UpdateConnectionMetrics(3, 1, 10)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.dbConnectionsOpenGauge), 0)
	assert.InDelta(t, 10.0, testutil.ToFloat64(m.dbConnectionsMaxGauge), 0)

	m.UpdateTableRowCount("places", 1200)
	assert.InDelta(t, 1200.0, testutil.ToFloat64(m.dbTableRowCountGauge.WithLabelValues("places")), 0)
}

func TestHTTPAndImportMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	h, err := NewHTTPMetrics(registry)
	require.NoError(t, err)
	im, err := NewImportMetrics(registry)
	require.NoError(t, err)

	h.RecordHTTPRequest("GET", "/api/v2/places/:id", 404, 0.003)
	h.RecordHTTPResponseSize("GET", "/api/v2/places/:id", 512)
	h.RecordRateLimited("/api/v2/places")

	assert.InDelta(t, 1.0, testutil.ToFloat64(h.httpRequestsTotal.WithLabelValues("GET", "/api/v2/places/:id", "404")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(h.httpRateLimitedTotal.WithLabelValues("/api/v2/places")), 0)

	im.RecordImportRun(StatusSuccess, 1.5)
	im.RecordImportFeature("street", LabelCreated)
	im.RecordImportFeature("street", LabelCreated)
	im.RecordImportFeature("building", LabelSkipped)

	assert.InDelta(t, 2.0, testutil.ToFloat64(im.importFeaturesTotal.WithLabelValues("street", LabelCreated)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(im.importRunsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(im, "gazetteer_import_features_total", "gazetteer_import_runs_total"))
}
