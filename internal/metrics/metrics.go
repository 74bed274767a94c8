package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry         *prometheus.Registry
	FetchesTotal     *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	LotsScrapedTotal prometheus.Counter
	BlockedTotal     prometheus.Counter
	RetriesTotal     prometheus.Counter
	FailuresTotal    *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotworker_fetches_total",
			Help: "Total page fetches issued, by phase.",
		},
		[]string{"phase"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lotworker_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	lotsScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lotworker_lots_scraped_total",
			Help: "Total number of lot records assembled.",
		},
	)
	blocked := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lotworker_blocked_total",
			Help: "Total number of bot-block responses seen.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lotworker_retries_total",
			Help: "Total number of fetch retries scheduled.",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotworker_failures_total",
			Help: "Total number of failures by type.",
		},
		[]string{"failure_type"},
	)

	registry.MustRegister(fetches, fetchDuration, lotsScraped, blocked, retries, failures)

	return &Metrics{
		Registry:         registry,
		FetchesTotal:     fetches,
		FetchDuration:    fetchDuration,
		LotsScrapedTotal: lotsScraped,
		BlockedTotal:     blocked,
		RetriesTotal:     retries,
		FailuresTotal:    failures,
	}
}

// IncFetch increments the fetch counter for a phase ("index" or "item").
func (m *Metrics) IncFetch(phase string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(phase).Inc()
}

// ObserveFetch records a fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncLots increments the assembled lots counter.
func (m *Metrics) IncLots() {
	if m == nil {
		return
	}
	m.LotsScrapedTotal.Inc()
}

// IncBlocked increments the blocked responses counter.
func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.BlockedTotal.Inc()
}

// IncFailure increments the failures counter for a type label.
func (m *Metrics) IncFailure(failureType string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(failureType).Inc()
}
