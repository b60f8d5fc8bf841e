// Package executor resolves query plans against the inverted index and
// orders the matches by link rank.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
)

// SearchResult is one resolved query. Generation identifies the corpus state
// that produced it and is set by the caller that owns the corpus.
type SearchResult struct {
	Query      string             `json:"query"`
	Mode       parser.QueryMode   `json:"mode"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	Generation string             `json:"generation,omitempty"`
}

// Executor reads the index, graph and source without locking. Callers must
// not run it concurrently with a crawl or a rank computation.
type Executor struct {
	index   *index.InvertedIndex
	graph   *linkgraph.Graph
	source  source.Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(ix *index.InvertedIndex, g *linkgraph.Graph, src source.Source, m *metrics.Metrics) *Executor {
	return &Executor{
		index:   ix,
		graph:   g,
		source:  src,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute returns the documents matching plan, highest rank first. Unknown
// terms and empty plans produce an empty result, not an error. A positive
// limit truncates Results; TotalHits counts every match.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	start := time.Now()
	result := &SearchResult{
		Query:   plan.RawQuery,
		Mode:    plan.Mode,
		Results: []ranker.ScoredDoc{},
	}

	var candidates []string
	var err error
	switch plan.Mode {
	case parser.ModePhrase:
		candidates, err = e.phraseMatches(ctx, plan)
	default:
		candidates = e.keywordMatches(plan.Terms)
	}
	if err != nil {
		e.observe(plan.Mode, "error", start, 0)
		return nil, err
	}

	result.TotalHits = len(candidates)
	if len(candidates) > 0 {
		result.Results = ranker.Rank(candidates, e.graph.Rank, limit)
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.observe(plan.Mode, resultType, start, len(result.Results))
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"mode", plan.Mode.String(),
		"terms", plan.Terms,
		"candidates", len(candidates),
		"results", len(result.Results),
	)
	return result, nil
}

// keywordMatches is the union of every term's documents in first-seen order.
func (e *Executor) keywordMatches(terms []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, term := range terms {
		for _, id := range e.index.Lookup(term) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// phraseMatches intersects the terms' documents, keeping the first term's
// order, then keeps the documents whose space-joined content contains the
// space-joined terms. The containment test is a plain substring search, so
// "cat sat" also matches "bobcat sat".
func (e *Executor) phraseMatches(ctx context.Context, plan *parser.QueryPlan) ([]string, error) {
	if len(plan.Terms) == 0 {
		return []string{}, nil
	}
	candidates := e.index.Lookup(plan.Terms[0])
	for _, term := range plan.Terms[1:] {
		if len(candidates) == 0 {
			return candidates, nil
		}
		kept := candidates[:0]
		for _, id := range candidates {
			if e.index.Contains(term, id) {
				kept = append(kept, id)
			}
		}
		candidates = kept
	}

	phrase := plan.Phrase()
	matches := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := e.source.Content(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("verifying phrase in %s: %w", id, err)
		}
		if strings.Contains(strings.Join(content, " "), phrase) {
			matches = append(matches, id)
		}
	}
	return matches, nil
}

func (e *Executor) observe(mode parser.QueryMode, resultType string, start time.Time, returned int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(mode.String(), resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		e.metrics.SearchResultsCount.Observe(float64(returned))
	}
}
