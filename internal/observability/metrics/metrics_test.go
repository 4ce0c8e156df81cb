package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Enrichment.RecordCacheLookup(true)
	m.Enrichment.RecordCacheLookup(false)
	m.Enrichment.RecordCacheLookup(false)
	m.Enrichment.RecordTextLookup(TextOutcomeFallback)
	m.Enrichment.RecordCacheWrite(7, nil)
	m.Enrichment.RecordImageSearch("catalog", ImageOutcomeMemo)
	m.Classifier.SetModelLoaded(true)
	m.Classifier.RecordIdentification("ok", 0.7)
	m.HTTP.RecordRequest("GET", "/gallery", 200, 0.01)
	m.History.RecordOperation("sqlite", "insert", errors.New("disk full"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Enrichment.CacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Enrichment.CacheLookups.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Enrichment.TextLookups.WithLabelValues(TextOutcomeFallback)), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.Enrichment.CacheEntries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Classifier.ModelLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.History.operations.WithLabelValues("sqlite", "insert", "error")), 0)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["http_requests_total"])
	assert.True(t, names["petalnet_image_searches_total"])
}

func TestNilRecordersAreNoops(t *testing.T) {
	var e *EnrichmentMetrics
	var c *ClassifierMetrics
	var h *HTTPMetrics
	var hist *HistoryMetrics

	assert.NotPanics(t, func() {
		e.RecordCacheLookup(true)
		e.RecordCacheWrite(1, nil)
		e.RecordTextLookup(TextOutcomeAPI)
		e.RecordTextRetry("throttled")
		e.RecordImageSearch("related", ImageOutcomeOK)
		e.ObserveRequestDuration("wikipedia", 0.2)
		c.SetModelLoaded(false)
		c.ObserveInference(0.1)
		c.RecordIdentification("ok", 0.9)
		h.RecordRequest("GET", "/", 200, 0.1)
		h.ObserveUpload(1024)
		hist.RecordOperation("mqtt", "publish", nil)
	})
}
