package analytics

import "time"

type EventType string

const (
	EventSearch        EventType = "search"
	EventZeroResult    EventType = "zero_result"
	EventCrawl         EventType = "crawl"
	EventIndexComplete EventType = "index.complete"
)

// Event is anything the collector can publish. The key picks the Kafka
// partition.
type Event interface {
	EventType() EventType
	EventKey() string
}

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Mode      string    `json:"mode"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e SearchEvent) EventType() EventType {
	return e.Type
}

func (e SearchEvent) EventKey() string {
	return e.Query
}

type CrawlEvent struct {
	Type             EventType `json:"type"`
	RunID            string    `json:"run_id"`
	Seed             string    `json:"seed"`
	DocumentsIndexed int       `json:"documents_indexed"`
	NodesAdded       int       `json:"nodes_added"`
	EdgesAdded       int       `json:"edges_added"`
	RankIterations   int       `json:"rank_iterations"`
	RankConverged    bool      `json:"rank_converged"`
	LatencyMs        int64     `json:"latency_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

func (e CrawlEvent) EventType() EventType {
	return e.Type
}

func (e CrawlEvent) EventKey() string {
	return e.Seed
}

// IndexCompleteEvent announces that the graph, index and ranks changed, so
// cached results are stale.
type IndexCompleteEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Seed      string    `json:"seed"`
	Nodes     int       `json:"nodes"`
	Terms     int       `json:"terms"`
	Timestamp time.Time `json:"timestamp"`
}

func (e IndexCompleteEvent) EventType() EventType {
	return e.Type
}

func (e IndexCompleteEvent) EventKey() string {
	return e.Seed
}
