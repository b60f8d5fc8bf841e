// Package indexer walks a document source from a seed, recording link
// structure in a linkgraph.Graph and token occurrences in an inverted index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
)

// CrawlStats summarizes one CrawlAndIndex call.
type CrawlStats struct {
	Seed             string        `json:"seed"`
	DocumentsIndexed int           `json:"documents_indexed"`
	NodesAdded       int           `json:"nodes_added"`
	EdgesAdded       int           `json:"edges_added"`
	Duration         time.Duration `json:"duration"`
}

// Crawler is not safe for concurrent use; it mutates the graph it was given
// without locking.
type Crawler struct {
	graph   *linkgraph.Graph
	index   *index.InvertedIndex
	source  source.Source
	maxDocs int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Crawler)

// WithMaxDocuments stops a crawl with ErrCrawlLimitExceeded once n documents
// have been indexed and another is reached. Zero means unlimited.
func WithMaxDocuments(n int) Option {
	return func(c *Crawler) { c.maxDocs = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

func NewCrawler(g *linkgraph.Graph, ix *index.InvertedIndex, src source.Source, opts ...Option) *Crawler {
	c := &Crawler{
		graph:  g,
		index:  ix,
		source: src,
		logger: slog.Default().With("component", "crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frame is one document whose links are still being followed.
type frame struct {
	id    string
	links []string
	next  int
}

// CrawlAndIndex visits seed and everything reachable from it depth first,
// following links in document order. A document already visited is skipped,
// which also terminates cycles. Each new link target is added to the graph
// and linked from its referrer before it is visited, so node insertion order
// matches a recursive walk. Source errors abort the crawl; the graph and
// index keep whatever was recorded before the failure.
func (c *Crawler) CrawlAndIndex(ctx context.Context, seed string) (*CrawlStats, error) {
	start := time.Now()
	stats := &CrawlStats{Seed: seed}
	nodesBefore, edgesBefore := c.graph.Len(), c.graph.EdgeCount()
	defer func() {
		stats.NodesAdded = c.graph.Len() - nodesBefore
		stats.EdgesAdded = c.graph.EdgeCount() - edgesBefore
		stats.Duration = time.Since(start)
		if c.metrics != nil {
			c.metrics.DocsCrawledTotal.Add(float64(stats.DocumentsIndexed))
			c.metrics.EdgesAddedTotal.Add(float64(stats.EdgesAdded))
			c.metrics.GraphNodes.Set(float64(c.graph.Len()))
			c.metrics.IndexTerms.Set(float64(c.index.TermCount()))
		}
	}()

	var stack []*frame
	visit := func(id string) error {
		if !c.graph.AddNode(id) && c.graph.Visited(id) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.maxDocs > 0 && stats.DocumentsIndexed >= c.maxDocs {
			return fmt.Errorf("visiting %s after %d documents: %w", id, stats.DocumentsIndexed, apperrors.ErrCrawlLimitExceeded)
		}
		c.graph.SetVisited(id, true)

		tokens, err := c.source.Content(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching content of %s: %w", id, err)
		}
		for _, tok := range tokenizer.NormalizeAll(tokens) {
			c.index.Add(tok, id)
		}
		stats.DocumentsIndexed++

		links, err := c.source.Links(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching links of %s: %w", id, err)
		}
		c.logger.Debug("document indexed", "doc_id", id, "tokens", len(tokens), "links", len(links))
		stack = append(stack, &frame{id: id, links: links})
		return nil
	}

	if err := visit(seed); err != nil {
		return stats, err
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.links) {
			stack = stack[:len(stack)-1]
			continue
		}
		target := top.links[top.next]
		top.next++
		c.graph.AddNode(target)
		c.graph.AddEdge(top.id, target)
		if err := visit(target); err != nil {
			return stats, err
		}
	}

	c.logger.Info("crawl complete",
		"seed", seed,
		"documents_indexed", stats.DocumentsIndexed,
		"nodes_added", c.graph.Len()-nodesBefore,
		"edges_added", c.graph.EdgeCount()-edgesBefore,
	)
	return stats, nil
}
