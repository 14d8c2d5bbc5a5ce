// Package metrics exposes session lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"referral/internal/domain/service"
)

const namespace = "referral_mobile"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	sessionsIssued  *prometheus.CounterVec
	refreshOutcomes *prometheus.CounterVec
	storeFallbacks  *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

var (
	_ service.SessionMetrics = (*Metrics)(nil)
	_ service.SessionMetrics = Noop{}
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Token pairs issued, by principal type and session mode.",
		}, []string{"principal_type", "mode"}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh attempts, by principal type and outcome.",
		}, []string{"principal_type", "outcome"}),
		storeFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fallbacks_total",
			Help:      "Operations that degraded because the session store was unavailable.",
		}, []string{"principal_type", "operation"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"policy"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsIssued,
		m.refreshOutcomes,
		m.storeFallbacks,
		m.rateLimited,
	)

	return m
}

func (m *Metrics) SessionIssued(principalType, mode string) {
	m.sessionsIssued.WithLabelValues(principalType, mode).Inc()
}

func (m *Metrics) RefreshOutcome(principalType, outcome string) {
	m.refreshOutcomes.WithLabelValues(principalType, outcome).Inc()
}

func (m *Metrics) StoreFallback(principalType, operation string) {
	m.storeFallbacks.WithLabelValues(principalType, operation).Inc()
}

func (m *Metrics) RateLimited(policy string) {
	m.rateLimited.WithLabelValues(policy).Inc()
}

// Registry exposes the underlying registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Noop discards every observation.
type Noop struct{}

func (Noop) SessionIssued(string, string)  {}
func (Noop) RefreshOutcome(string, string) {}
func (Noop) StoreFallback(string, string)  {}
func (Noop) RateLimited(string)            {}
