package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	modelRequests *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	listings      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "listinglens",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "listinglens",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		modelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "listinglens",
			Name:      "model_requests_total",
			Help:      "Vision and text model calls by operation and result code.",
		}, []string{"operation", "code"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "listinglens",
			Name:      "model_request_duration_seconds",
			Help:      "Vision and text model latency by operation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"operation"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "listinglens",
			Name:      "listings_generated_total",
			Help:      "Generated listings by platform and content kind.",
		}, []string{"platform", "kind"}),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.modelRequests, m.modelDuration, m.listings)
	return m
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveModelCall records one vision or text model call. code is "OK" on
// success, otherwise the upstream error code.
func (m *Metrics) ObserveModelCall(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.modelRequests.WithLabelValues(operation, code).Inc()
	m.modelDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ListingGenerated counts a generated listing
func (m *Metrics) ListingGenerated(platform, kind string) {
	if m == nil {
		return
	}
	m.listings.WithLabelValues(platform, kind).Inc()
}
