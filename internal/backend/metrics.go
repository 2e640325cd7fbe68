package backend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outbound backend calls.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "portal_backend_requests_total", Help: "Count of backend requests"},
			[]string{"endpoint", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_backend_request_duration_seconds",
				Help:    "Latency of backend requests",
				Buckets: prometheus.DefBuckets,
			}, []string{"endpoint", "method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency)
	}
	return m
}

func (m *Metrics) observe(endpoint, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, method, status).Inc()
	m.latency.WithLabelValues(endpoint, method).Observe(seconds)
}
