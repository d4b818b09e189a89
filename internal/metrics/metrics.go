// Package metrics defines the Prometheus collectors for the search service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propsearch"

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SearchRequestsTotal *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	SearchResults       *prometheus.HistogramVec
	HistoryWritesTotal  *prometheus.CounterVec
	EventsDroppedTotal  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Searches by requested type, match mode (strict or fuzzy), and outcome.",
			},
			[]string{"type", "mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search engine latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"scored"},
		),
		SearchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of listings returned per search.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"mode"},
		),
		HistoryWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_writes_total",
				Help:      "Search history recordings by outcome (appended, duplicate, error).",
			},
			[]string{"outcome"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_events_dropped_total",
				Help:      "Analytics events dropped because the buffer was full.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchRequestsTotal,
		m.SearchLatency,
		m.SearchResults,
		m.HistoryWritesTotal,
		m.EventsDroppedTotal,
	)

	return m
}

// Handler returns the scrape handler for the registry the metrics live in
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// ObserveSearch records one engine search
func (m *Metrics) ObserveSearch(searchType, mode, outcome string, scored bool, results int, took time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(searchType, mode, outcome).Inc()
	if outcome != "ok" {
		return
	}
	m.SearchLatency.WithLabelValues(strconv.FormatBool(scored)).Observe(took.Seconds())
	m.SearchResults.WithLabelValues(mode).Observe(float64(results))
}

// HistoryWrite records the outcome of one history recording
func (m *Metrics) HistoryWrite(outcome string) {
	if m == nil {
		return
	}
	m.HistoryWritesTotal.WithLabelValues(outcome).Inc()
}

// EventDropped counts an analytics event lost to back-pressure
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDroppedTotal.Inc()
}
