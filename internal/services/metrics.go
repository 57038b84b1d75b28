package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the operation counters exposed on /metrics.
type Metrics struct {
	Uploads  prometheus.Counter
	Analyses *prometheus.CounterVec
	Renders  *prometheus.CounterVec
	Cleanups prometheus.Counter
}

// NewMetrics registers the pipeline counters on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Uploads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reportai_uploads_total",
			Help: "Number of accepted tabular uploads.",
		}),
		Analyses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reportai_analyses_total",
			Help: "Number of analysis requests by outcome.",
		}, []string{"outcome"}),
		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reportai_renders_total",
			Help: "Number of rendered reports by output format.",
		}, []string{"format"}),
		Cleanups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reportai_cleanups_total",
			Help: "Number of explicit cleanup calls.",
		}),
	}
}

// NopMetrics returns unregistered counters for tests.
func NopMetrics() *Metrics {
	return &Metrics{
		Uploads: prometheus.NewCounter(prometheus.CounterOpts{Name: "uploads_total"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "analyses_total"},
			[]string{"outcome"}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "renders_total"},
			[]string{"format"}),
		Cleanups: prometheus.NewCounter(prometheus.CounterOpts{Name: "cleanups_total"}),
	}
}
