// Package metrics instruments remoteperf's transport and sampler layers
// with Prometheus counters, gauges, and histograms, served over an
// optional HTTP endpoint rather than queried from one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument remoteperf records against. A
// zero-value Metrics is not usable; construct one with New.
type Metrics struct {
	registry *prometheus.Registry

	TransportRetries    *prometheus.CounterVec
	TransportReconnects *prometheus.CounterVec
	TransportErrors     *prometheus.CounterVec
	ActiveSamplers      *prometheus.GaugeVec
	CommandDuration     *prometheus.HistogramVec
}

// New creates a Metrics registered against a fresh, private registry.
// Using a private registry rather than prometheus.DefaultRegisterer
// keeps repeated New calls (tests, multiple CLI invocations in one
// process) from panicking on duplicate registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		TransportRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteperf",
			Subsystem: "transport",
			Name:      "retries_total",
			Help:      "Number of command retry attempts, by transport kind.",
		}, []string{"transport"}),
		TransportReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteperf",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "Number of transport reconnect attempts, by transport kind.",
		}, []string{"transport"}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteperf",
			Subsystem: "transport",
			Name:      "errors_total",
			Help:      "Number of terminal command failures, by transport kind and error kind.",
		}, []string{"transport", "kind"}),
		ActiveSamplers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "remoteperf",
			Subsystem: "sampler",
			Name:      "active",
			Help:      "Number of currently running background samplers, by handler family and sampler kind.",
		}, []string{"family", "kind"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remoteperf",
			Subsystem: "transport",
			Name:      "command_duration_seconds",
			Help:      "Latency of a single remote command execution, by transport kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}

	reg.MustRegister(m.TransportRetries, m.TransportReconnects, m.TransportErrors, m.ActiveSamplers, m.CommandDuration)
	return m
}

// Handler returns the HTTP handler to mount at "/metrics".
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRetry counts one retry attempt for the given transport kind
// ("ssh", "adb", "dockerexec").
func (m *Metrics) RecordRetry(transportKind string) {
	m.TransportRetries.WithLabelValues(transportKind).Inc()
}

// RecordReconnect counts one reconnect attempt for the given transport
// kind.
func (m *Metrics) RecordReconnect(transportKind string) {
	m.TransportReconnects.WithLabelValues(transportKind).Inc()
}

// RecordError counts one terminal command failure, labeled by the
// concrete error kind (e.g. "ExhaustedError", "AuthenticationError").
func (m *Metrics) RecordError(transportKind, errKind string) {
	m.TransportErrors.WithLabelValues(transportKind, errKind).Inc()
}

// ObserveCommandDuration records how long one command attempt took.
func (m *Metrics) ObserveCommandDuration(transportKind string, seconds float64) {
	m.CommandDuration.WithLabelValues(transportKind).Observe(seconds)
}

// SamplerStarted increments the active-sampler gauge for family/kind.
func (m *Metrics) SamplerStarted(family, kind string) {
	m.ActiveSamplers.WithLabelValues(family, kind).Inc()
}

// SamplerStopped decrements the active-sampler gauge for family/kind.
func (m *Metrics) SamplerStopped(family, kind string) {
	m.ActiveSamplers.WithLabelValues(family, kind).Dec()
}

// noop is a Metrics whose instruments are registered but never wired to
// any HTTP endpoint, returned by Noop for callers that don't want to
// plumb a *Metrics through every layer just to pass nil checks.
var noop *Metrics

// Noop returns a Metrics safe to record against when no /metrics
// endpoint was requested. Recording into it is cheap and has no
// observable effect outside the process.
func Noop() *Metrics {
	if noop == nil {
		noop = New()
	}
	return noop
}
