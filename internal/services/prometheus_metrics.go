package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	viewsBuilt          *prometheus.CounterVec
	viewBuildDuration   prometheus.Histogram
	fallbacks           *prometheus.CounterVec
	upstreamCalls       *prometheus.CounterVec
	upstreamDuration    prometheus.Histogram
	partialData         *prometheus.CounterVec
	refreshSuperseded   *prometheus.CounterVec
	coalescedRequests   *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	circuitBreakerState *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the analytics collectors with registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPrometheusMetrics(registerer prometheus.Registerer) MetricsRecorderInterface {
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		viewsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_views_built_total",
				Help: "Total number of dashboard views built",
			},
			[]string{"dashboard", "origin"},
		),
		viewBuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analytics_view_build_duration_milliseconds",
				Help:    "Dashboard view build duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_fallback_total",
				Help: "Total number of views served from synthesized data",
			},
			[]string{"dashboard", "reason"},
		),
		upstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_upstream_calls_total",
				Help: "Total number of metric source calls",
			},
			[]string{"source", "status"},
		),
		upstreamDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analytics_upstream_call_duration_seconds",
				Help:    "Metric source call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		partialData: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_partial_data_total",
				Help: "Total number of required fields defaulted during normalization",
			},
			[]string{"entity", "field"},
		),
		refreshSuperseded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_refresh_superseded_total",
				Help: "Total number of refresh results discarded for a newer trigger",
			},
			[]string{"dashboard"},
		),
		coalescedRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_coalesced_requests_total",
				Help: "Total number of requests served by a shared in-flight build",
			},
			[]string{"dashboard"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "analytics_active_sessions",
				Help: "Current number of viewer refresh sessions",
			},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	dashboard := tags["dashboard"]

	switch name {
	case "analytics.view.built":
		m.viewsBuilt.WithLabelValues(dashboard, tags["origin"]).Inc()
	case "analytics.fallback":
		m.fallbacks.WithLabelValues(dashboard, tags["reason"]).Inc()
	case "analytics.upstream.call":
		m.upstreamCalls.WithLabelValues(tags["source"], tags["status"]).Inc()
	case "analytics.partial_data":
		m.partialData.WithLabelValues(tags["entity"], tags["field"]).Inc()
	case "analytics.refresh.superseded":
		m.refreshSuperseded.WithLabelValues(dashboard).Inc()
	case "analytics.request.coalesced":
		m.coalescedRequests.WithLabelValues(dashboard).Inc()
	case "circuit_breaker.open":
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(1)
	case "circuit_breaker.closed":
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(0)
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case "analytics.view.build":
		m.viewBuildDuration.Observe(float64(duration.Milliseconds()))
	case "analytics.upstream.call":
		m.upstreamDuration.Observe(duration.Seconds())
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case "analytics.sessions.active":
		m.activeSessions.Set(value)
	case "circuit_breaker.state":
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(value)
	}
}
