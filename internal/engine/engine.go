// Package engine wires the link graph, inverted index, crawler, rank engine
// and query executor into one searchable corpus.
//
// Crawling and ranking take the write lock; queries take the read lock, so a
// rank computation never sees the node set change underneath it and queries
// never observe a half-finished sweep.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/tracing"
)

type Options struct {
	// MaxDocuments caps a single crawl. Zero means unlimited.
	MaxDocuments int
	// MaxIterations caps a rank computation. Zero means unlimited.
	MaxIterations int
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

type Engine struct {
	mu          sync.RWMutex
	graph       *linkgraph.Graph
	index       *index.InvertedIndex
	crawler     *indexer.Crawler
	executor    *executor.Executor
	fingerprint string
	opts        Options
	logger      *slog.Logger
}

// Document describes one node of the graph.
type Document struct {
	ID      string   `json:"id"`
	Visited bool     `json:"visited"`
	Rank    float64  `json:"rank"`
	Out     []string `json:"out"`
	In      []string `json:"in"`
}

func New(src source.Source, opts Options) *Engine {
	g := linkgraph.New()
	ix := index.New()
	e := &Engine{
		graph: g,
		index: ix,
		crawler: indexer.NewCrawler(g, ix, src,
			indexer.WithMaxDocuments(opts.MaxDocuments),
			indexer.WithMetrics(opts.Metrics),
		),
		executor: executor.New(ix, g, src, opts.Metrics),
		opts:     opts,
		logger:   slog.Default().With("component", "engine"),
	}
	e.refreshFingerprint()
	return e
}

// CrawlAndIndex adds everything reachable from seed to the graph and index.
// New nodes start at the default rank until AssignRanks runs.
func (e *Engine) CrawlAndIndex(ctx context.Context, seed string) (*indexer.CrawlStats, error) {
	ctx, span := tracing.Start(ctx, "engine.crawl")
	defer e.finish(span)
	span.Set("seed", seed)

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshFingerprint()
	stats, err := e.crawler.CrawlAndIndex(ctx, seed)
	if err != nil {
		return stats, fmt.Errorf("crawling from %s: %w", seed, err)
	}
	span.Set("documents_indexed", stats.DocumentsIndexed)
	return stats, nil
}

// AssignRanks recomputes every node's rank with tolerance epsilon.
func (e *Engine) AssignRanks(ctx context.Context, epsilon float64) (*pagerank.Result, error) {
	ctx, span := tracing.Start(ctx, "engine.rank")
	defer e.finish(span)

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshFingerprint()
	res, err := pagerank.Assign(ctx, e.graph, pagerank.Options{
		Epsilon:       epsilon,
		MaxIterations: e.opts.MaxIterations,
	})
	if err != nil {
		return res, fmt.Errorf("assigning ranks: %w", err)
	}
	if m := e.opts.Metrics; m != nil {
		m.RankIterations.Observe(float64(res.Iterations))
		m.RankDuration.Observe(res.Duration.Seconds())
		if !res.Converged {
			m.RankNotConverged.Inc()
		}
	}
	span.Set("iterations", res.Iterations)
	span.Set("converged", res.Converged)

	log := e.logger.Info
	if !res.Converged {
		log = e.logger.Warn
	}
	log("ranks assigned",
		"nodes", e.graph.Len(),
		"iterations", res.Iterations,
		"converged", res.Converged,
		"max_delta", res.MaxDelta,
	)
	return res, nil
}

// Report is the outcome of CrawlAndRank.
type Report struct {
	RunID string              `json:"run_id"`
	Crawl *indexer.CrawlStats `json:"crawl"`
	Rank  *pagerank.Result    `json:"rank"`
	Nodes int                 `json:"nodes"`
	Terms int                 `json:"terms"`
}

// CrawlAndRank crawls from seed and then re-ranks the whole graph.
func (e *Engine) CrawlAndRank(ctx context.Context, seed string, epsilon float64) (*Report, error) {
	ctx, span := tracing.Start(ctx, "engine.crawl_and_rank")
	defer e.finish(span)

	report := &Report{RunID: uuid.NewString()}
	span.Set("run_id", report.RunID)
	var err error
	if report.Crawl, err = e.CrawlAndIndex(ctx, seed); err != nil {
		return report, err
	}
	if report.Rank, err = e.AssignRanks(ctx, epsilon); err != nil {
		return report, err
	}
	e.mu.RLock()
	report.Nodes, report.Terms = e.graph.Len(), e.index.TermCount()
	e.mu.RUnlock()
	return report, nil
}

// Search runs plan and returns scored results, truncated to a positive limit.
func (e *Engine) Search(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error) {
	ctx, span := tracing.Start(ctx, "engine.search")
	defer e.finish(span)
	span.Set("mode", plan.Mode.String())

	e.mu.RLock()
	defer e.mu.RUnlock()
	res, err := e.executor.Execute(ctx, plan, limit)
	if err != nil {
		return nil, fmt.Errorf("executing %s query %q: %w", plan.Mode, plan.RawQuery, err)
	}
	res.Generation = e.fingerprint
	span.Set("total_hits", res.TotalHits)
	return res, nil
}

// Query returns the ids of every document matching text, highest rank first.
func (e *Engine) Query(ctx context.Context, text string, phrase bool) ([]string, error) {
	mode := parser.ModeKeyword
	if phrase {
		mode = parser.ModePhrase
	}
	res, err := e.Search(ctx, parser.Parse(text, mode), 0)
	if err != nil {
		return nil, err
	}
	return ranker.IDs(res.Results), nil
}

// Rank returns the stored rank of id, or 0 when id is unknown.
func (e *Engine) Rank(id string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Rank(id)
}

// Document returns the node for id with its in-links, or false when id is
// not in the graph.
func (e *Engine) Document(id string) (*Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.graph.Has(id) {
		return nil, false
	}
	n := e.graph.Node(id)
	return &Document{
		ID:      n.ID,
		Visited: n.Visited,
		Rank:    n.Rank,
		Out:     n.Out(),
		In:      append([]string{}, e.graph.InEdges(id)...),
	}, true
}

// TopRanked returns the n highest-ranked documents, in graph order on ties.
// n <= 0 returns every document.
func (e *Engine) TopRanked(n int) []ranker.ScoredDoc {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ranker.Rank(e.graph.IDs(), e.graph.Rank, n)
}

// Fingerprint identifies the current graph, index and ranks. Engines holding
// the same corpus state report the same value, so a shared result cache can
// key on it.
func (e *Engine) Fingerprint() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fingerprint
}

// Stats returns the node, edge and term counts.
func (e *Engine) Stats() (nodes, edges, terms int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Len(), e.graph.EdgeCount(), e.index.TermCount()
}

// String renders one line per node: id, visited flag and rank.
func (e *Engine) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.String()
}

// refreshFingerprint must run with the write lock held.
func (e *Engine) refreshFingerprint() {
	h := sha256.New()
	for _, id := range e.graph.IDs() {
		fmt.Fprintf(h, "n\x00%s\x00%t\x00%x\x00%s\n",
			id, e.graph.Visited(id), math.Float64bits(e.graph.Rank(id)),
			strings.Join(e.graph.Neighbors(id), "\x00"))
	}
	for _, entry := range e.index.Snapshot() {
		fmt.Fprintf(h, "t\x00%s\x00%s\n", entry.Term, strings.Join(entry.DocIDs, "\x00"))
	}
	e.fingerprint = hex.EncodeToString(h.Sum(nil)[:12])
}

func (e *Engine) finish(span *tracing.Span) {
	span.End()
	if span.IsRoot() {
		span.Log(e.logger)
	}
}
