// Package observability groups the service's Prometheus instruments.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	SynthesisTotal    *prometheus.CounterVec
	SynthesisDuration prometheus.Histogram
	AnalysisFailures  prometheus.Counter
	ProgressPersists  prometheus.Counter
	HistoryItems      prometheus.Gauge
}

// NewMetrics registers the instruments under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SynthesisTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Speech synthesis requests by result.",
		}, []string{"result"}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_ms",
			Help:      "Speech synthesis latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		AnalysisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Text analysis failures recovered by falling back to no tokens.",
		}),
		ProgressPersists: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_persists_total",
			Help:      "Throttled playback progress writes to the history store.",
		}),
		HistoryItems: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_items",
			Help:      "Number of items in the history collection.",
		}),
	}
}

// ObserveSynthesis records one synthesis attempt.
func (m *Metrics) ObserveSynthesis(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SynthesisTotal.WithLabelValues(result).Inc()
	if err == nil {
		m.SynthesisDuration.Observe(float64(d.Milliseconds()))
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
