package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
)

// countingSource records how often each document is read.
type countingSource struct {
	*source.Memory
	contentCalls map[string]int
	failOn       string
}

func (s *countingSource) Content(ctx context.Context, id string) ([]string, error) {
	s.contentCalls[id]++
	if id == s.failOn {
		return nil, apperrors.ErrSourceUnavailable
	}
	return s.Memory.Content(ctx, id)
}

func newCountingSource(docs ...source.Document) *countingSource {
	return &countingSource{Memory: source.NewMemory(docs...), contentCalls: make(map[string]int)}
}

func TestCrawlCycleVisitsEachOnce(t *testing.T) {
	src := newCountingSource(
		source.Document{ID: "A", Links: []string{"B"}, Content: "alpha"},
		source.Document{ID: "B", Links: []string{"A"}, Content: "beta"},
	)
	g := linkgraph.New()
	ix := index.New()

	stats, err := NewCrawler(g, ix, src).CrawlAndIndex(context.Background(), "A")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 1, "B": 1}, src.contentCalls)
	assert.Equal(t, 2, stats.DocumentsIndexed)
	assert.Equal(t, 2, stats.NodesAdded)
	assert.Equal(t, 2, stats.EdgesAdded)
	assert.True(t, g.Visited("A"))
	assert.True(t, g.Visited("B"))
	assert.Equal(t, []string{"B"}, g.Neighbors("A"))
	assert.Equal(t, []string{"A"}, g.Neighbors("B"))
}

func TestCrawlNodeOrderMatchesDepthFirstWalk(t *testing.T) {
	src := source.NewMemory(
		source.Document{ID: "a", Links: []string{"b", "c"}},
		source.Document{ID: "b", Links: []string{"d"}},
		source.Document{ID: "c", Links: []string{"a"}},
		source.Document{ID: "d"},
	)
	g := linkgraph.New()
	_, err := NewCrawler(g, index.New(), src).CrawlAndIndex(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "d", "c"}, g.IDs())
	assert.Equal(t, []string{"c"}, g.InEdges("a"))
}

func TestCrawlIndexesNormalizedTokensOnce(t *testing.T) {
	src := source.NewMemory(source.Document{ID: "p1", Content: "Cat cat, CAT! dog"})
	ix := index.New()

	_, err := NewCrawler(linkgraph.New(), ix, src).CrawlAndIndex(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, ix.Lookup("cat"))
	assert.Equal(t, []string{"p1"}, ix.Lookup("dog"))
	assert.Equal(t, 2, ix.TermCount())
}

func TestCrawlUnknownSeed(t *testing.T) {
	g := linkgraph.New()
	ix := index.New()

	stats, err := NewCrawler(g, ix, source.NewMemory()).CrawlAndIndex(context.Background(), "ghost")
	require.NoError(t, err)

	assert.Equal(t, []string{"ghost"}, g.IDs())
	assert.True(t, g.Visited("ghost"))
	assert.Equal(t, 0, ix.TermCount())
	assert.Equal(t, 1, stats.DocumentsIndexed)
}

func TestCrawlLinkToUnknownDocument(t *testing.T) {
	src := source.NewMemory(source.Document{ID: "a", Links: []string{"missing"}, Content: "x"})
	g := linkgraph.New()

	_, err := NewCrawler(g, index.New(), src).CrawlAndIndex(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"missing"}, g.Neighbors("a"))
	assert.Empty(t, g.Neighbors("missing"))
}

func TestCrawlRecrawlIsNoOp(t *testing.T) {
	src := newCountingSource(source.Document{ID: "a", Links: []string{"a"}, Content: "self"})
	c := NewCrawler(linkgraph.New(), index.New(), src)

	_, err := c.CrawlAndIndex(context.Background(), "a")
	require.NoError(t, err)
	stats, err := c.CrawlAndIndex(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 0, stats.DocumentsIndexed)
	assert.Equal(t, 1, src.contentCalls["a"])
}

func TestCrawlSourceErrorAborts(t *testing.T) {
	src := newCountingSource(
		source.Document{ID: "a", Links: []string{"b", "c"}, Content: "one"},
		source.Document{ID: "b", Content: "two"},
		source.Document{ID: "c", Content: "three"},
	)
	src.failOn = "b"
	ix := index.New()

	stats, err := NewCrawler(linkgraph.New(), ix, src).CrawlAndIndex(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Equal(t, 1, stats.DocumentsIndexed)
	assert.Zero(t, src.contentCalls["c"])
	assert.Equal(t, []string{"a"}, ix.Lookup("one"))
}

func TestCrawlMaxDocuments(t *testing.T) {
	src := source.NewMemory(
		source.Document{ID: "a", Links: []string{"b"}},
		source.Document{ID: "b", Links: []string{"c"}},
		source.Document{ID: "c"},
	)
	stats, err := NewCrawler(linkgraph.New(), index.New(), src, WithMaxDocuments(2)).
		CrawlAndIndex(context.Background(), "a")

	assert.ErrorIs(t, err, apperrors.ErrCrawlLimitExceeded)
	assert.Equal(t, 2, stats.DocumentsIndexed)
}

func TestCrawlCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCrawler(linkgraph.New(), index.New(), source.NewMemory()).CrawlAndIndex(ctx, "a")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCrawlRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	src := source.NewMemory(
		source.Document{ID: "a", Links: []string{"b"}, Content: "x y"},
		source.Document{ID: "b", Content: "y"},
	)
	_, err := NewCrawler(linkgraph.New(), index.New(), src, WithMetrics(m)).CrawlAndIndex(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsCrawledTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesAddedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GraphNodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexTerms))
}
