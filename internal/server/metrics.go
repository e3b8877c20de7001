package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/caffeineduck/tsplay/playground"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	diagnostics     *prometheus.CounterVec
	sessions        prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsplay",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tsplay",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsplay",
			Name:      "runs_total",
			Help:      "Check-and-run calls by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tsplay",
			Name:      "run_duration_seconds",
			Help:      "Time spent executing snippets that passed the checker.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsplay",
			Name:      "diagnostics_total",
			Help:      "Reported diagnostics by severity.",
		}, []string{"severity"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tsplay",
			Name:      "websocket_sessions",
			Help:      "Open live editor sessions.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.runs, m.runDuration, m.diagnostics, m.sessions,
	)
	return m
}

// ObserveRun records a playground event. Pass it to playground.WithObserver.
func (m *Metrics) ObserveRun(e playground.Event) {
	m.runs.WithLabelValues(string(e.Outcome)).Inc()
	if e.Outcome != playground.OutcomeRejected {
		m.runDuration.Observe(e.Duration.Seconds())
	}
	m.diagnostics.WithLabelValues("error").Add(float64(e.Errors))
	m.diagnostics.WithLabelValues("warning").Add(float64(e.Warnings))
}

// Registry returns the registry served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
