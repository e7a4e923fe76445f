// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meetings"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	commits      *prometheus.CounterVec
	commitSize   prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "commits_total",
			Help:      "Registration commit attempts by outcome code.",
		}, []string{"outcome"}),

		commitSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "entries_per_commit",
			Help:      "Event entries in successfully committed registrations.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCommit records a commit attempt. outcome is "ok" or an error code;
// entries is only observed for successful commits.
func (m *Metrics) ObserveCommit(outcome string, entries int) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.commitSize.Observe(float64(entries))
	}
}
