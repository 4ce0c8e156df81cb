package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for text lookups
const (
	TextOutcomeCache       = "cache"
	TextOutcomeAPI         = "api"
	TextOutcomeFallback    = "fallback"
	TextOutcomePlaceholder = "placeholder"
)

// Outcome labels for image searches
const (
	ImageOutcomeOK           = "ok"
	ImageOutcomeEmpty        = "empty"
	ImageOutcomeError        = "error"
	ImageOutcomeUnconfigured = "unconfigured"
	ImageOutcomeMemo         = "memo"
)

// EnrichmentMetrics covers the description cache, text lookups and image searches.
type EnrichmentMetrics struct {
	CacheLookups   *prometheus.CounterVec
	CacheWrites    *prometheus.CounterVec
	CacheEntries   prometheus.Gauge
	TextLookups    *prometheus.CounterVec
	TextRetries    *prometheus.CounterVec
	ImageSearches  *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

// NewEnrichmentMetrics creates and registers the enrichment collectors.
func NewEnrichmentMetrics(registry *prometheus.Registry) (*EnrichmentMetrics, error) {
	m := &EnrichmentMetrics{}
	m.initMetrics()
	if err := register(registry, "enrichment", m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EnrichmentMetrics) initMetrics() {
	m.CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petalnet_enrichment_cache_lookups_total",
		Help: "Description cache lookups by result.",
	}, []string{"result"}) // hit, miss

	m.CacheWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petalnet_enrichment_cache_writes_total",
		Help: "Description cache file rewrites by result.",
	}, []string{"result"}) // ok, error

	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "petalnet_enrichment_cache_entries",
		Help: "Number of cached descriptions.",
	})

	m.TextLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petalnet_text_lookups_total",
		Help: "Description resolutions by the source that answered.",
	}, []string{"outcome"})

	m.TextRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petalnet_text_lookup_retries_total",
		Help: "Retried encyclopedia requests by reason.",
	}, []string{"reason"}) // throttled, transport

	m.ImageSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petalnet_image_searches_total",
		Help: "Photo searches by kind and outcome.",
	}, []string{"kind", "outcome"})

	m.LookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petalnet_external_request_duration_seconds",
		Help:    "Duration of outbound API requests.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"service"})
}

// RecordCacheLookup counts a cache hit or miss.
func (m *EnrichmentMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWrite counts a cache file rewrite and updates the entry gauge.
func (m *EnrichmentMetrics) RecordCacheWrite(entries int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheWrites.WithLabelValues(result).Inc()
	m.CacheEntries.Set(float64(entries))
}

// RecordTextLookup counts a finished description resolution.
func (m *EnrichmentMetrics) RecordTextLookup(outcome string) {
	if m == nil {
		return
	}
	m.TextLookups.WithLabelValues(outcome).Inc()
}

// RecordTextRetry counts a retried encyclopedia request.
func (m *EnrichmentMetrics) RecordTextRetry(reason string) {
	if m == nil {
		return
	}
	m.TextRetries.WithLabelValues(reason).Inc()
}

// RecordImageSearch counts a photo search.
func (m *EnrichmentMetrics) RecordImageSearch(kind, outcome string) {
	if m == nil {
		return
	}
	m.ImageSearches.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequestDuration records the duration of one outbound request.
func (m *EnrichmentMetrics) ObserveRequestDuration(service string, seconds float64) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(service).Observe(seconds)
}

// Collect implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CacheLookups.Collect(ch)
	m.CacheWrites.Collect(ch)
	ch <- m.CacheEntries
	m.TextLookups.Collect(ch)
	m.TextRetries.Collect(ch)
	m.ImageSearches.Collect(ch)
	m.LookupDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *EnrichmentMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CacheLookups.Describe(ch)
	m.CacheWrites.Describe(ch)
	ch <- m.CacheEntries.Desc()
	m.TextLookups.Describe(ch)
	m.TextRetries.Describe(ch)
	m.ImageSearches.Describe(ch)
	m.LookupDuration.Describe(ch)
}
