// Package metrics owns the Prometheus registry and the collectors worldmap exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

// Metrics is safe for concurrent use and implements onboarding.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	slugChecks   *prometheus.CounterVec
	drafts       *prometheus.CounterVec
	completions  prometheus.Counter
	sessions     prometheus.Gauge
}

var _ onboarding.Recorder = (*Metrics)(nil)

// New registers every collector on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmap",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldmap",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		slugChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmap",
			Name:      "slug_checks_total",
			Help:      "Resolved slug availability checks by result.",
		}, []string{"result"}),
		drafts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmap",
			Name:      "memory_drafts_total",
			Help:      "Memory drafts processed during completion, by outcome and stage.",
		}, []string{"outcome", "stage"}),
		completions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "worldmap",
			Name:      "onboarding_completed_total",
			Help:      "Onboarding flows that committed every draft.",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "worldmap",
			Name:      "onboarding_sessions",
			Help:      "Open onboarding sessions.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SessionOpened raises the open onboarding session gauge.
func (m *Metrics) SessionOpened() { m.sessions.Inc() }

// SessionClosed lowers the open onboarding session gauge.
func (m *Metrics) SessionClosed() { m.sessions.Dec() }

// SlugChecked counts an applied slug availability result.
func (m *Metrics) SlugChecked(status onboarding.SlugStatus) {
	m.slugChecks.WithLabelValues(string(status)).Inc()
}

// DraftCommitted counts a draft whose write chain finished.
func (m *Metrics) DraftCommitted() {
	m.drafts.WithLabelValues("committed", string(onboarding.StageDone)).Inc()
}

// DraftFailed counts a draft that stopped at stage.
func (m *Metrics) DraftFailed(stage onboarding.Stage) {
	m.drafts.WithLabelValues("failed", string(stage)).Inc()
}

// OnboardingCompleted counts a finished onboarding.
func (m *Metrics) OnboardingCompleted() { m.completions.Inc() }
