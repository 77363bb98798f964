// Package metrics exposes Prometheus instrumentation for external requests
// and batch runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fontana/internal/batch"
	"fontana/internal/fetch"
)

const namespace = "fontana"

// Metrics owns a private registry so tests and multiple daemons in one
// process never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	lastRun         *prometheus.GaugeVec
}

var (
	_ fetch.Observer = (*Metrics)(nil)
	_ batch.Observer = (*Metrics)(nil)
)

// New creates and registers every collector. withRuntime adds the Go and
// process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "External API requests by service and status class.",
		}, []string{"service", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "External API request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"service"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Reconciled items by run kind and outcome.",
		}, []string{"kind", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Completed batch runs by kind.",
		}, []string{"kind"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "run_duration_seconds",
			Help:      "Batch run wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"kind"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of each kind finished.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.requests, m.requestDuration, m.outcomes, m.runs, m.runDuration, m.lastRun)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveRequest implements fetch.Observer.
func (m *Metrics) ObserveRequest(service string, code int, latency time.Duration) {
	m.requests.WithLabelValues(service, codeClass(code)).Inc()
	m.requestDuration.WithLabelValues(service).Observe(latency.Seconds())
}

// ObserveOutcome implements batch.Observer.
func (m *Metrics) ObserveOutcome(kind, outcome string) {
	m.outcomes.WithLabelValues(kind, outcome).Inc()
}

// ObserveRun implements batch.Observer.
func (m *Metrics) ObserveRun(kind string, report *batch.Report) {
	m.runs.WithLabelValues(kind).Inc()
	if report == nil {
		return
	}
	m.runDuration.WithLabelValues(kind).Observe(report.Duration().Seconds())
	if !report.FinishedAt.IsZero() {
		m.lastRun.WithLabelValues(kind).Set(float64(report.FinishedAt.Unix()))
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// codeClass keeps label cardinality bounded: 2xx, 4xx, 5xx or transport.
func codeClass(code int) string {
	switch {
	case code == fetch.CodeTransport:
		return "transport"
	case code >= 100 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "other"
	}
}
