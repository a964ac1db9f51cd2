// Package metrics exposes Prometheus collectors for the speech relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxrelay"

// Retry reasons.
const (
	ReasonRateLimited    = "rate_limited"
	ReasonTransportError = "transport_error"
)

// Metrics holds the relay's collectors and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	providerRequestDuration *prometheus.HistogramVec
	providerRequestsTotal   *prometheus.CounterVec
	providerRetriesTotal    *prometheus.CounterVec
	synthesisDuration       *prometheus.HistogramVec
	synthesisTotal          *prometheus.CounterVec
	audioSeconds            prometheus.Histogram
	inflight                prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		providerRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Duration of individual speech provider HTTP attempts in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		providerRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total speech provider HTTP attempts by response class",
			},
			[]string{"model", "status"}, // status: 2xx, 4xx, 429, 5xx, error
		),
		providerRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Total retries scheduled against the speech provider",
			},
			[]string{"reason"},
		),
		synthesisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synthesis_duration_seconds",
				Help:      "End-to-end synthesis duration in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		synthesisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesis_total",
				Help:      "Total synthesis requests by outcome",
			},
			[]string{"outcome"}, // outcome: success, invalid_input, config_error, exhausted, rejected, malformed_audio, canceled, error
		),
		audioSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audio_output_seconds",
				Help:      "Playback length of returned audio in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "synthesis_inflight",
				Help:      "Number of synthesis requests currently being processed",
			},
		),
	}

	m.registry.MustRegister(
		m.providerRequestDuration,
		m.providerRequestsTotal,
		m.providerRetriesTotal,
		m.synthesisDuration,
		m.synthesisTotal,
		m.audioSeconds,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProviderAttempt records one HTTP attempt against the provider.
// statusCode 0 means the attempt failed before a response arrived.
func (m *Metrics) RecordProviderAttempt(model string, statusCode int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.providerRequestDuration.WithLabelValues(model).Observe(durationSeconds)
	m.providerRequestsTotal.WithLabelValues(model, statusClass(statusCode)).Inc()
}

// RecordRetry records a scheduled retry.
func (m *Metrics) RecordRetry(reason string) {
	if m == nil {
		return
	}
	m.providerRetriesTotal.WithLabelValues(reason).Inc()
}

// SynthesisStarted marks a synthesis as in flight.
func (m *Metrics) SynthesisStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// SynthesisFinished records the outcome of a synthesis started with SynthesisStarted.
func (m *Metrics) SynthesisFinished(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.synthesisDuration.WithLabelValues(outcome).Observe(durationSeconds)
	m.synthesisTotal.WithLabelValues(outcome).Inc()
}

// RecordAudio records the playback length of a returned clip.
func (m *Metrics) RecordAudio(durationSeconds float64) {
	if m == nil {
		return
	}
	m.audioSeconds.Observe(durationSeconds)
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
