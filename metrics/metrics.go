// Package metrics is the observability sink for the prediction path:
// request counts, latencies, and per-mode outcome counters. The Sink
// interface is injected into the orchestrator so tests can assert on
// emitted events without a live scraping endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mode labels, one per terminal cascade tier. Operators use these to tell
// "model working", "model absent", and "model erroring" apart.
const (
	ModeModel           = "model"
	ModeFallbackNoModel = "fallback_no_model"
	ModeFallbackError   = "fallback_error"
	ModeFallbackFailed  = "fallback_failed"
)

// Sink receives prediction-path events. Implementations must support
// concurrent use.
type Sink interface {
	IncRequests()
	ObserveLatency(seconds float64)
	IncMode(mode string)
}

// PromSink implements Sink on a private Prometheus registry.
type PromSink struct {
	registry *prometheus.Registry
	requests prometheus.Counter
	latency  prometheus.Histogram
	modes    *prometheus.CounterVec
}

// NewPromSink builds a sink with its own registry, so multiple servers in
// one process (tests, mainly) do not collide.
func NewPromSink() *PromSink {
	s := &PromSink{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "request_count_total",
			Help: "Total API requests",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		modes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_mode_total",
			Help: "Predictions by mode",
		}, []string{"mode"}),
	}

	s.registry.MustRegister(s.requests, s.latency, s.modes)
	return s
}

func (s *PromSink) IncRequests() {
	s.requests.Inc()
}

func (s *PromSink) ObserveLatency(seconds float64) {
	s.latency.Observe(seconds)
}

func (s *PromSink) IncMode(mode string) {
	s.modes.WithLabelValues(mode).Inc()
}

// Handler serves the registry in text exposition format.
func (s *PromSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
