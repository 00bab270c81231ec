package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	dispatchCount   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
}

// NewMetrics initializes and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "Gateway requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "http_request_duration_seconds",
			Help:      "Gateway request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_errors_total",
			Help:      "Gateway errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		dispatchCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "dispatch_total",
			Help:      "Action dispatcher outcomes.",
		}, []string{"action", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the portal API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "active_sessions",
			Help:      "Browser sessions currently held in memory.",
		}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestLatency,
		m.errorCount,
		m.dispatchCount,
		m.upstreamLatency,
		m.activeSessions,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordDispatch counts an action dispatcher outcome ("ok", or an error code).
func (m *Metrics) RecordDispatch(action, outcome string) {
	if m == nil {
		return
	}
	m.dispatchCount.WithLabelValues(action, outcome).Inc()
}

// RecordUpstream observes one call to the portal API.
func (m *Metrics) RecordUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(duration.Seconds())
}

// SetActiveSessions reports the size of the session registry.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
