package pagerank

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
)

func buildGraph(ids []string, edges [][2]string) *linkgraph.Graph {
	g := linkgraph.New()
	for _, id := range ids {
		g.AddNode(id)
	}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestInvalidEpsilon(t *testing.T) {
	g := buildGraph([]string{"a"}, nil)
	for _, eps := range []float64{0, -0.1, math.NaN()} {
		_, err := Assign(context.Background(), g, Options{Epsilon: eps})
		assert.ErrorIs(t, err, apperrors.ErrInvalidEpsilon, "epsilon %v", eps)
	}
	_, err := Assign(context.Background(), g, Options{Epsilon: 0.1, MaxIterations: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEmptyGraph(t *testing.T) {
	res, err := Assign(context.Background(), linkgraph.New(), Options{Epsilon: 0.01})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Zero(t, res.Iterations)
}

func TestSingleNodeWithoutLinks(t *testing.T) {
	g := buildGraph([]string{"a"}, nil)
	res, err := Assign(context.Background(), g, Options{Epsilon: 0.01})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1-Damping, g.Rank("a"))
}

func TestMutualLinksConvergeEqual(t *testing.T) {
	for _, eps := range []float64{0.5, 0.01, 1e-9} {
		g := buildGraph([]string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}})
		res, err := Assign(context.Background(), g, Options{Epsilon: eps})
		require.NoError(t, err)

		assert.True(t, res.Converged)
		assert.Equal(t, g.Rank("A"), g.Rank("B"))
		assert.InDelta(t, 1.0, g.Rank("A"), 1e-12)
	}
}

func TestThreeCycleStaysUniform(t *testing.T) {
	g := buildGraph([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	res, err := Assign(context.Background(), g, Options{Epsilon: 0.01})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	for _, id := range g.IDs() {
		assert.Equal(t, 1.0, g.Rank(id))
	}
}

func TestSweepReadsUpdatedPredecessors(t *testing.T) {
	// A→B, A→C, B→C, C→A. C reads B's value from the same sweep (0.75),
	// giving 1.125 where a synchronous update would give 1.25.
	g := buildGraph([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}, {"C", "A"}})
	res, err := Assign(context.Background(), g, Options{Epsilon: 0.01, MaxIterations: 1})
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.InDelta(t, 0.25, res.MaxDelta, 1e-12)
	assert.InDelta(t, 1.0, g.Rank("A"), 1e-12)
	assert.InDelta(t, 0.75, g.Rank("B"), 1e-12)
	assert.InDelta(t, 1.125, g.Rank("C"), 1e-12)
}

func TestConvergesToFixedPoint(t *testing.T) {
	g := buildGraph([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}, {"C", "A"}})
	res, err := Assign(context.Background(), g, Options{Epsilon: 1e-10})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.MaxDelta, 1e-10)
	assert.InDelta(t, 14.0/13.0, g.Rank("A"), 1e-8)
	assert.InDelta(t, 10.0/13.0, g.Rank("B"), 1e-8)
	assert.InDelta(t, 15.0/13.0, g.Rank("C"), 1e-8)
}

func TestRanksNeverBelowBase(t *testing.T) {
	g := buildGraph(
		[]string{"a", "b", "c", "d", "e"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "a"}, {"e", "a"}, {"d", "e"}},
	)
	_, err := Assign(context.Background(), g, Options{Epsilon: 0.001})
	require.NoError(t, err)
	for _, id := range g.IDs() {
		assert.GreaterOrEqual(t, g.Rank(id), 1-Damping, id)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := buildGraph([]string{"a"}, nil)

	_, err := Assign(ctx, g, Options{Epsilon: 0.01})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, linkgraph.DefaultRank, g.Rank("a"))
}

func BenchmarkAssignRing(b *testing.B) {
	ids := make([]string, 500)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	edges := make([][2]string, 0, len(ids)*2)
	for i := range ids {
		edges = append(edges, [2]string{ids[i], ids[(i+1)%len(ids)]}, [2]string{ids[i], ids[(i+7)%len(ids)]})
	}
	b.ReportAllocs()
	for b.Loop() {
		g := buildGraph(ids, edges)
		if _, err := Assign(context.Background(), g, Options{Epsilon: 1e-6}); err != nil {
			b.Fatal(err)
		}
	}
}
