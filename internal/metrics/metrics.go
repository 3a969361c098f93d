package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is valid and records nothing,
// so components can be constructed without instrumentation in tests.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	Searches         *prometheus.CounterVec
	SearchDuration   prometheus.Histogram
	DetailFailures   prometheus.Counter
	ActiveSessions   prometheus.Gauge
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movie_search_upstream_requests_total",
				Help: "Count of requests sent to upstream APIs",
			},
			[]string{"upstream", "code"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "movie_search_upstream_request_duration_seconds",
				Help:    "Time taken by upstream API requests",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"upstream"},
		),
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movie_search_searches_total",
				Help: "Count of search invocations by outcome",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "movie_search_search_duration_seconds",
				Help:    "Time taken by a full search invocation",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		DetailFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "movie_search_detail_failures_total",
				Help: "Count of detail lookups dropped from a result set",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "movie_search_active_sessions",
				Help: "Current number of live search sessions",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.UpstreamRequests,
			m.UpstreamDuration,
			m.Searches,
			m.SearchDuration,
			m.DetailFailures,
			m.ActiveSessions,
		)
	}
	return m
}

// ObserveUpstream records one upstream round trip. code is the HTTP status or "error".
func (m *Metrics) ObserveUpstream(upstream, code string, took time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(upstream, code).Inc()
	m.UpstreamDuration.WithLabelValues(upstream).Observe(took.Seconds())
}

// ObserveSearch records the outcome of one search invocation.
func (m *Metrics) ObserveSearch(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(took.Seconds())
}

// AddDetailFailures counts detail lookups excluded from a result set.
func (m *Metrics) AddDetailFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DetailFailures.Add(float64(n))
}

// SetActiveSessions updates the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
