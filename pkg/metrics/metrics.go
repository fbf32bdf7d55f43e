package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec

	SubmissionsTotal     *prometheus.CounterVec
	HistoryFetchDegraded *prometheus.CounterVec
	DeletionsTotal       *prometheus.CounterVec
	NotesWritesTotal     *prometheus.CounterVec

	ActivityEntriesTotal  prometheus.Counter
	ActivityBufferDropped prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector registers every console metric on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the default registry.
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of console HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Console HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10, 30},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight console HTTP requests.",
		}),

		RemoteCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Calls to the remote API by operation and outcome.",
		}, []string{"operation", "outcome"}),

		RemoteCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Remote API call latency. Inference calls dominate the upper buckets.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),

		SubmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "submissions_total",
			Help:      "Scan submissions by final outcome.",
		}, []string{"outcome"}),

		HistoryFetchDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "fetch_degraded_total",
			Help:      "History loads where one half degraded to an empty result.",
		}, []string{"half"}),

		DeletionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "deletions_total",
			Help:      "Scan deletions by outcome.",
		}, []string{"outcome"}),

		NotesWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notes",
			Name:      "writes_total",
			Help:      "Clinician note saves and clears.",
		}, []string{"action"}),

		ActivityEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "entries_total",
			Help:      "Total activity journal entries written.",
		}),

		ActivityBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "buffer_dropped_total",
			Help:      "Activity entries dropped due to full buffer.",
		}),

		gatherer: reg,
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
