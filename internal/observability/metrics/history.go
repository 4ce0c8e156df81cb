package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics covers the identification history store and event publication.
type HistoryMetrics struct {
	operations *prometheus.CounterVec
}

// NewHistoryMetrics creates and registers the history collectors.
func NewHistoryMetrics(registry *prometheus.Registry) (*HistoryMetrics, error) {
	m := &HistoryMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petalnet_history_operations_total",
			Help: "Identification history and event operations by sink, operation and result.",
		}, []string{"sink", "operation", "result"}), // sink: sqlite, mqtt
	}
	if err := register(registry, "history", m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation counts one sink operation.
func (m *HistoryMetrics) RecordOperation(sink, operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(sink, operation, result).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *HistoryMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operations.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *HistoryMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operations.Describe(ch)
}
