// Package metrics provides the Prometheus collectors for PetalNet-Go.
//
// Every recorder method is safe on a nil receiver so components can be built
// without metrics in tests and CLI commands.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups all collectors registered on one registry.
type Metrics struct {
	Registry   *prometheus.Registry
	Enrichment *EnrichmentMetrics
	Classifier *ClassifierMetrics
	HTTP       *HTTPMetrics
	History    *HistoryMetrics
}

// NewMetrics creates a registry with the Go and process collectors plus the
// application collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{Registry: registry}

	var err error
	if m.Enrichment, err = NewEnrichmentMetrics(registry); err != nil {
		return nil, err
	}
	if m.Classifier, err = NewClassifierMetrics(registry); err != nil {
		return nil, err
	}
	if m.HTTP, err = NewHTTPMetrics(registry); err != nil {
		return nil, err
	}
	if m.History, err = NewHistoryMetrics(registry); err != nil {
		return nil, err
	}
	return m, nil
}

func register(registry *prometheus.Registry, name string, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		return fmt.Errorf("failed to register %s metrics: %w", name, err)
	}
	return nil
}
