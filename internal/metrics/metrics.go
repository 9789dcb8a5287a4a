// Package metrics exposes Prometheus collectors for the crawler and search
// surfaces.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal             *prometheus.CounterVec
	crawlerFrontierEnqueuedTotal  prometheus.Counter
	crawlerDomainsRegisteredTotal prometheus.Counter
	crawlerDomainsCompletedTotal  prometheus.Counter
	crawlerRateLimitDelaysSeconds *prometheus.HistogramVec
	searchQueriesTotal            *prometheus.CounterVec
	searchDurationSeconds         prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of crawl steps, labeled by hostname and outcome.",
			},
			[]string{"hostname", "outcome"},
		)

		crawlerFrontierEnqueuedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_frontier_enqueued_total",
				Help: "Total number of new frontier entries enqueued.",
			},
		)

		crawlerDomainsRegisteredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_domains_registered_total",
				Help: "Total number of domain registration upserts.",
			},
		)

		crawlerDomainsCompletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_domains_completed_total",
				Help: "Total number of domains marked complete.",
			},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of politeness delays before fetches.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"hostname"},
		)

		searchQueriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total number of search requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		searchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_duration_seconds",
				Help:    "Histogram of search request latencies.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records the outcome of one crawl step.
func ObserveCrawl(hostname, outcome string) {
	Init()
	crawlerPagesTotal.WithLabelValues(hostname, outcome).Inc()
}

// ObserveEnqueue counts a newly inserted frontier entry.
func ObserveEnqueue() {
	Init()
	crawlerFrontierEnqueuedTotal.Inc()
}

// ObserveDomainRegistered counts a domain registration upsert.
func ObserveDomainRegistered() {
	Init()
	crawlerDomainsRegisteredTotal.Inc()
}

// ObserveDomainCompleted counts a domain transitioning to complete.
func ObserveDomainCompleted() {
	Init()
	crawlerDomainsCompletedTotal.Inc()
}

// ObserveRateLimitDelay records a politeness wait before a fetch.
func ObserveRateLimitDelay(hostname string, d time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(hostname).Observe(d.Seconds())
}

// ObserveSearch records one search request.
func ObserveSearch(outcome string, d time.Duration) {
	Init()
	searchQueriesTotal.WithLabelValues(outcome).Inc()
	searchDurationSeconds.Observe(d.Seconds())
}
