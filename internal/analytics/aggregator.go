package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByMode    map[string]int64 `json:"searches_by_mode"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	TotalCrawls       int64            `json:"total_crawls"`
	TotalDocsIndexed  int64            `json:"total_docs_indexed"`
	LastCrawl         *CrawlEvent      `json:"last_crawl,omitempty"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// Aggregator keeps running totals of search and crawl events. It can be fed
// directly through Track or from Kafka through HandleEvent.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	byMode            map[string]int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	totalCrawls       int64
	totalDocsIndexed  int64
	lastCrawl         *CrawlEvent
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMode:            make(map[string]int64),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Track records event immediately.
func (a *Aggregator) Track(event Event) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearch(e)
	case CrawlEvent:
		a.recordCrawl(e)
	}
}

// HandleEvent is a kafka.MessageHandler for the analytics topic. Undecodable
// or unknown messages are logged and skipped.
func (a *Aggregator) HandleEvent(_ context.Context, msg kafka.Message) error {
	switch EventType(msg.Type) {
	case EventSearch, EventZeroResult:
		event, err := kafka.DecodeJSON[SearchEvent](msg.Value)
		if err != nil {
			a.logger.Error("failed to decode search event", "error", err)
			return nil
		}
		a.recordSearch(event)
	case EventCrawl:
		event, err := kafka.DecodeJSON[CrawlEvent](msg.Value)
		if err != nil {
			a.logger.Error("failed to decode crawl event", "error", err)
			return nil
		}
		a.recordCrawl(event)
	default:
		a.logger.Debug("ignoring analytics message", "type", msg.Type)
	}
	return nil
}

func (a *Aggregator) recordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	a.byMode[event.Mode]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	if len(a.latencies) == maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
}

func (a *Aggregator) recordCrawl(event CrawlEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalCrawls++
	a.totalDocsIndexed += int64(event.DocumentsIndexed)
	a.lastCrawl = &event
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		SearchesByMode:   make(map[string]int64, len(a.byMode)),
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
		TotalCrawls:      a.totalCrawls,
		TotalDocsIndexed: a.totalDocsIndexed,
	}
	for mode, n := range a.byMode {
		stats.SearchesByMode[mode] = n
	}
	if a.lastCrawl != nil {
		last := *a.lastCrawl
		stats.LastCrawl = &last
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
