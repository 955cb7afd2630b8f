package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "royalty"

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	projections      *prometheus.CounterVec
	projectionErrors *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projections_total",
			Help:      "Completed royalty projections.",
		}, []string{"mode", "classification"}),
		projectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_errors_total",
			Help:      "Rejected or failed royalty projections.",
		}, []string{"reason"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marketdata_lookups_total",
			Help:      "Market data lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.projections,
		m.projectionErrors,
		m.lookups,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveProjection(mode, classification string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(mode, classification).Inc()
}

func (m *Metrics) ObserveProjectionError(reason string) {
	if m == nil {
		return
	}
	m.projectionErrors.WithLabelValues(reason).Inc()
}

// ObserveLookup satisfies marketdata.LookupObserver.
func (m *Metrics) ObserveLookup(source, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
