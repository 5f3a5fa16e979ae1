// Package metrics holds the Prometheus collectors for the gateway, the IVR
// and the conversation driver.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. Collectors are
// always registered; config only decides whether /metrics is served.
type Metrics struct {
	registry *prometheus.Registry

	WebhookRequests *prometheus.CounterVec
	WebhookDuration *prometheus.HistogramVec
	RateLimitHits   *prometheus.CounterVec
	AuthFailures    *prometheus.CounterVec

	IVRTransitions *prometheus.CounterVec

	StreamsActive      prometheus.Gauge
	TurnsTotal         *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GenerationTokens   *prometheus.CounterVec
	Escalations        *prometheus.CounterVec

	StoreWriteFailures *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "switchboard"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Voice webhook requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Voice webhook handling time",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"endpoint"}),
		RateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Webhook requests rejected by the rate limiter",
		}, []string{"endpoint"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected by signature or token checks",
		}, []string{"reason"}),
		IVRTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ivr_transitions_total",
			Help:      "Menu state machine transitions by target state",
		}, []string{"state"}),
		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Open duplex conversation streams",
		}),
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Caller turns by flow action",
		}, []string{"action"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generative reply latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"provider", "outcome"}),
		GenerationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by generative replies",
		}, []string{"provider", "direction"}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalations by category",
		}, []string{"category"}),
		StoreWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_failures_total",
			Help:      "Deferred writes dropped after retry",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.WebhookRequests,
		m.WebhookDuration,
		m.RateLimitHits,
		m.AuthFailures,
		m.IVRTransitions,
		m.StreamsActive,
		m.TurnsTotal,
		m.GenerationDuration,
		m.GenerationTokens,
		m.Escalations,
		m.StoreWriteFailures,
	)
	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordWebhook records a completed webhook request.
func (m *Metrics) RecordWebhook(endpoint string, status int, d time.Duration) {
	m.WebhookRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.WebhookDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordGeneration records one generative call.
func (m *Metrics) RecordGeneration(provider, outcome string, d time.Duration, in, out int) {
	m.GenerationDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
	if in > 0 {
		m.GenerationTokens.WithLabelValues(provider, "input").Add(float64(in))
	}
	if out > 0 {
		m.GenerationTokens.WithLabelValues(provider, "output").Add(float64(out))
	}
}
