// Package monitoring wires the optional observability backends: a
// Prometheus registry with per-request metrics, and a New Relic agent
// whose pgx integration traces database calls.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP request metrics and their registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds a registry with process, Go runtime and HTTP request
// collectors.
func NewMetrics(appName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "authservice",
		Name:        "http_requests_total",
		Help:        "Total HTTP requests handled.",
		ConstLabels: prometheus.Labels{"app": appName},
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "authservice",
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request latency.",
		ConstLabels: prometheus.Labels{"app": appName},
		Buckets:     prometheus.DefBuckets,
	}, []string{"method", "route"})

	reg.MustRegister(requests, duration)
	return &Metrics{registry: reg, requests: requests, duration: duration}
}

// ObserveRequest records one handled request. Safe on a nil receiver so
// callers can pass a disabled Metrics through unchanged.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the registry for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NewRelicApp builds the agent when monitoring is enabled and a license
// key is present. Returns nil (not an error) when disabled; all consumers
// treat a nil application as a no-op.
func NewRelicApp(appName, licenseKey string, enabled bool) (*newrelic.Application, error) {
	if !enabled || licenseKey == "" {
		return nil, nil
	}
	return newrelic.NewApplication(
		newrelic.ConfigAppName(appName),
		newrelic.ConfigLicense(licenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
}
