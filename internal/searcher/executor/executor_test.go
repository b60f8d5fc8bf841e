package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/metrics"
)

type fixture struct {
	index *index.InvertedIndex
	graph *linkgraph.Graph
	src   *source.Memory
}

// newFixture indexes docs directly and gives each node the listed rank.
func newFixture(docs []source.Document, ranks map[string]float64) *fixture {
	f := &fixture{index: index.New(), graph: linkgraph.New(), src: source.NewMemory(docs...)}
	for _, d := range docs {
		f.graph.AddNode(d.ID)
		if r, ok := ranks[d.ID]; ok {
			f.graph.SetRank(d.ID, r)
		}
		tokens, _ := f.src.Content(context.Background(), d.ID)
		for _, tok := range tokens {
			f.index.Add(tok, d.ID)
		}
	}
	return f
}

func (f *fixture) run(t *testing.T, query string, mode parser.QueryMode, limit int) *SearchResult {
	t.Helper()
	res, err := New(f.index, f.graph, f.src, nil).Execute(context.Background(), parser.Parse(query, mode), limit)
	require.NoError(t, err)
	return res
}

func TestKeywordUnion(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "cat"},
		{ID: "p2", Content: "cat dog"},
		{ID: "p3", Content: "dog"},
	}, map[string]float64{"p1": 0.6, "p2": 0.9, "p3": 1.4})

	res := f.run(t, "cat dog", parser.ModeKeyword, 0)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ranker.IDs(res.Results))
	assert.Equal(t, 3, res.TotalHits)
	assert.Equal(t, 1.4, res.Results[0].Score)
}

func TestKeywordTiesKeepFirstSeenOrder(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "cat"},
		{ID: "p2", Content: "cat dog"},
		{ID: "p3", Content: "dog"},
	}, nil)

	res := f.run(t, "dog cat", parser.ModeKeyword, 0)
	assert.Equal(t, []string{"p2", "p3", "p1"}, ranker.IDs(res.Results))
}

func TestPhraseIntersectionAndVerification(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "the cat sat"},
		{ID: "p2", Content: "the cat ran"},
	}, map[string]float64{"p1": 0.5, "p2": 0.8})

	res := f.run(t, "the cat", parser.ModePhrase, 0)
	assert.Equal(t, []string{"p2", "p1"}, ranker.IDs(res.Results))

	res = f.run(t, "cat sat", parser.ModePhrase, 0)
	assert.Equal(t, []string{"p1"}, ranker.IDs(res.Results))
}

func TestPhraseRequiresAdjacency(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "sat the cat"},
		{ID: "p2", Content: "cat sat"},
		{ID: "p3", Content: "cat, sat!"},
	}, nil)

	res := f.run(t, "cat sat", parser.ModePhrase, 0)
	assert.Equal(t, []string{"p2", "p3"}, ranker.IDs(res.Results))
}

func TestPhraseSubstringApproximation(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "bobcat sat"},
		{ID: "p2", Content: "cat here, sat there"},
	}, nil)
	f.index.Add("cat", "p1")

	res := f.run(t, "cat sat", parser.ModePhrase, 0)
	assert.Equal(t, []string{"p1"}, ranker.IDs(res.Results))
}

func TestPhraseKeepsAdjacentCandidates(t *testing.T) {
	docs := make([]source.Document, 0, 6)
	for i := range 6 {
		content := "red fox"
		if i%2 == 0 {
			content = "fox red"
		}
		docs = append(docs, source.Document{ID: fmt.Sprintf("d%d", i), Content: content})
	}
	f := newFixture(docs, nil)

	res := f.run(t, "red fox", parser.ModePhrase, 0)
	assert.Equal(t, []string{"d1", "d3", "d5"}, ranker.IDs(res.Results))
}

func TestPhraseEmptyIntersection(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "cat"},
		{ID: "p2", Content: "dog"},
	}, nil)

	res := f.run(t, "cat dog", parser.ModePhrase, 0)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
}

func TestUnknownTokenAndEmptyQuery(t *testing.T) {
	f := newFixture([]source.Document{{ID: "p1", Content: "cat"}}, nil)

	for _, mode := range []parser.QueryMode{parser.ModeKeyword, parser.ModePhrase} {
		for _, q := range []string{"unicorn", "", "?!"} {
			res := f.run(t, q, mode, 0)
			assert.NotNil(t, res.Results)
			assert.Empty(t, res.Results, "%s %q", mode, q)
		}
	}
	assert.Equal(t, 1, f.index.TermCount())
}

func TestLimit(t *testing.T) {
	f := newFixture([]source.Document{
		{ID: "p1", Content: "hub"},
		{ID: "p2", Content: "hub"},
		{ID: "p3", Content: "hub"},
	}, map[string]float64{"p3": 2})

	res := f.run(t, "hub", parser.ModeKeyword, 2)
	assert.Equal(t, []string{"p3", "p1"}, ranker.IDs(res.Results))
	assert.Equal(t, 3, res.TotalHits)
}

func TestUnknownGraphNodeRanksZero(t *testing.T) {
	f := newFixture([]source.Document{{ID: "p1", Content: "hub"}}, map[string]float64{"p1": 0.1})
	f.index.Add("hub", "orphan")

	res := f.run(t, "hub", parser.ModeKeyword, 0)
	assert.Equal(t, []ranker.ScoredDoc{{DocID: "p1", Score: 0.1}, {DocID: "orphan", Score: 0}}, res.Results)
}

type failingSource struct{ *source.Memory }

func (failingSource) Content(context.Context, string) ([]string, error) {
	return nil, apperrors.ErrSourceUnavailable
}

func TestPhraseSourceErrorPropagates(t *testing.T) {
	f := newFixture([]source.Document{{ID: "p1", Content: "the cat"}}, nil)
	m := metrics.New(prometheus.NewRegistry())
	exec := New(f.index, f.graph, failingSource{f.src}, m)

	_, err := exec.Execute(context.Background(), parser.Parse("the cat", parser.ModePhrase), 0)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("phrase", "error")))
}

func TestExecuteRecordsMetrics(t *testing.T) {
	f := newFixture([]source.Document{{ID: "p1", Content: "cat"}}, nil)
	m := metrics.New(prometheus.NewRegistry())
	exec := New(f.index, f.graph, f.src, m)

	_, err := exec.Execute(context.Background(), parser.Parse("cat", parser.ModeKeyword), 0)
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), parser.Parse("dog", parser.ModeKeyword), 0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("keyword", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("keyword", "zero_result")))
}

func BenchmarkKeywordQuery(b *testing.B) {
	docs := make([]source.Document, 0, 1000)
	for i := range 1000 {
		docs = append(docs, source.Document{ID: fmt.Sprintf("doc-%d", i), Content: fmt.Sprintf("shared term%d", i%50)})
	}
	f := newFixture(docs, nil)
	exec := New(f.index, f.graph, f.src, nil)
	plan := parser.Parse("shared term7", parser.ModeKeyword)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := exec.Execute(context.Background(), plan, 10); err != nil {
			b.Fatal(err)
		}
	}
}
