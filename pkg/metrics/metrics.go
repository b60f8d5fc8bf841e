// Package metrics defines the Prometheus collectors used by the crawler,
// rank engine and search service, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocsCrawledTotal     prometheus.Counter
	EdgesAddedTotal      prometheus.Counter
	GraphNodes           prometheus.Gauge
	IndexTerms           prometheus.Gauge
	RankIterations       prometheus.Histogram
	RankDuration         prometheus.Histogram
	RankNotConverged     prometheus.Counter
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in services and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsCrawledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_documents_indexed_total",
				Help: "Total documents visited and indexed by the crawler.",
			},
		),
		EdgesAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_edges_added_total",
				Help: "Total new link edges recorded in the graph.",
			},
		),
		GraphNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkgraph_nodes",
				Help: "Number of document nodes in the link graph.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inverted_index_terms",
				Help: "Number of distinct tokens in the inverted index.",
			},
		),
		RankIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rank_iterations",
				Help:    "Sweeps needed per rank computation.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		RankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rank_duration_seconds",
				Help:    "Wall time of a rank computation in seconds.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		RankNotConverged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rank_not_converged_total",
				Help: "Rank computations stopped by the iteration cap before converging.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by mode and result type (hit, zero_result, error).",
			},
			[]string{"mode", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsCrawledTotal,
		m.EdgesAddedTotal,
		m.GraphNodes,
		m.IndexTerms,
		m.RankIterations,
		m.RankDuration,
		m.RankNotConverged,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
