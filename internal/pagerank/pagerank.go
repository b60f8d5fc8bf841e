// Package pagerank assigns link-based importance scores to the nodes of a
// linkgraph.Graph.
//
// Ranks are computed with a damped fixed-point iteration using an in-place
// Gauss–Seidel sweep: nodes are updated in graph insertion order, and an
// update reads the already-updated value of any in-neighbour that precedes
// it in that order and the previous sweep's value of any that follows. The
// result therefore depends on insertion order, which linkgraph keeps stable.
package pagerank

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/linkgraph"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
)

// Damping is the share of a node's rank that comes from its in-links.
const Damping = 0.5

// Options configures a ranking run.
type Options struct {
	// Epsilon is the convergence tolerance. Must be positive.
	Epsilon float64

	// MaxIterations caps the number of sweeps. Zero means no cap, in which
	// case the graph must be one that converges.
	MaxIterations int
}

// Validate rejects a non-positive or NaN epsilon and a negative cap.
func (o Options) Validate() error {
	if math.IsNaN(o.Epsilon) || o.Epsilon <= 0 {
		return fmt.Errorf("epsilon %v: %w", o.Epsilon, apperrors.ErrInvalidEpsilon)
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("max iterations %d: %w", o.MaxIterations, apperrors.ErrInvalidInput)
	}
	return nil
}

// Result reports how a ranking run ended.
type Result struct {
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	MaxDelta   float64       `json:"max_delta"`
	Duration   time.Duration `json:"duration"`
}

// Assign recomputes every node's rank in g and stores it back on the graph
// after each sweep. It stops when no rank moved by more than opts.Epsilon
// during a sweep, when opts.MaxIterations sweeps have run, or when ctx is
// done. The graph must not be modified while Assign runs.
func Assign(ctx context.Context, g *linkgraph.Graph, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{}
	defer func() { res.Duration = time.Since(start) }()

	ids := g.IDs()
	n := len(ids)
	if n == 0 {
		res.Converged = true
		return res, nil
	}

	pos := make(map[string]int, n)
	for i, id := range ids {
		pos[id] = i
	}
	// In-edges and out-degrees are fixed for the run, so resolve them once.
	inbound := make([][]int, n)
	outDeg := make([]float64, n)
	for i, id := range ids {
		for _, w := range g.InEdges(id) {
			inbound[i] = append(inbound[i], pos[w])
		}
		outDeg[i] = float64(g.OutDegree(id))
	}

	prev := make([]float64, n)
	next := make([]float64, n)
	for i, id := range ids {
		prev[i] = g.Rank(id)
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ranking interrupted after %d sweeps: %w", res.Iterations, err)
		}
		for i, id := range ids {
			next[i] = g.Rank(id)
		}
		for i := range next {
			var sum float64
			for _, j := range inbound[i] {
				sum += next[j] / outDeg[j]
			}
			next[i] = (1 - Damping) + Damping*sum
		}
		res.Iterations++

		res.MaxDelta = 0
		for i := range next {
			if d := math.Abs(prev[i] - next[i]); d > res.MaxDelta {
				res.MaxDelta = d
			}
		}
		copy(prev, next)
		for i, id := range ids {
			g.SetRank(id, next[i])
		}

		if res.MaxDelta <= opts.Epsilon {
			res.Converged = true
			return res, nil
		}
		if opts.MaxIterations > 0 && res.Iterations >= opts.MaxIterations {
			return res, nil
		}
	}
}
