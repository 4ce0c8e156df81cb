package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClassifierMetrics covers model loading and inference.
type ClassifierMetrics struct {
	ModelLoaded       prometheus.Gauge
	InferenceDuration prometheus.Histogram
	Identifications   *prometheus.CounterVec
	TopConfidence     prometheus.Histogram
}

// NewClassifierMetrics creates and registers the classifier collectors.
func NewClassifierMetrics(registry *prometheus.Registry) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "petalnet_model_loaded",
			Help: "1 when the classifier model is loaded, 0 when running degraded.",
		}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "petalnet_inference_duration_seconds",
			Help:    "Duration of preprocessing plus classifier invocation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Identifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petalnet_identifications_total",
			Help: "Identification requests by result.",
		}, []string{"result"}), // ok, rejected, error
		TopConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "petalnet_top_confidence",
			Help:    "Confidence of the top prediction.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	if err := register(registry, "classifier", m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetModelLoaded flips the model gauge.
func (m *ClassifierMetrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}

// ObserveInference records one inference.
func (m *ClassifierMetrics) ObserveInference(seconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(seconds)
}

// RecordIdentification counts an identification and, when ok, its top confidence.
func (m *ClassifierMetrics) RecordIdentification(result string, topConfidence float64) {
	if m == nil {
		return
	}
	m.Identifications.WithLabelValues(result).Inc()
	if result == "ok" {
		m.TopConfidence.Observe(topConfidence)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ModelLoaded
	ch <- m.InferenceDuration
	m.Identifications.Collect(ch)
	ch <- m.TopConfidence
}

// Describe implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ModelLoaded.Desc()
	ch <- m.InferenceDuration.Desc()
	m.Identifications.Describe(ch)
	ch <- m.TopConfidence.Desc()
}
