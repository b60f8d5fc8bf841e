// Package linkgraph holds the directed link graph built by the crawler: one
// node per document with its outbound edges, visited flag and rank.
//
// Lookups on unknown identifiers never fail; they return the zero value
// (no neighbours, rank 0, not visited) and setters ignore them. Graph is not
// safe for concurrent mutation; callers serialise writes.
package linkgraph

import (
	"fmt"
	"strings"
)

// DefaultRank is the rank a node starts with before any ranking pass.
const DefaultRank = 1.0

// Node is one document in the graph.
type Node struct {
	ID      string
	Visited bool
	Rank    float64

	out    []string
	outSet map[string]struct{}
}

// Out returns a copy of the node's outbound targets in insertion order.
func (n *Node) Out() []string {
	out := make([]string, len(n.out))
	copy(out, n.out)
	return out
}

func (n *Node) linksTo(id string) bool {
	_, ok := n.outSet[id]
	return ok
}

// Graph maps document identifiers to nodes and remembers insertion order,
// which is the iteration order used by ranking.
type Graph struct {
	nodes map[string]*Node
	order []*Node
	edges int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts id with no edges, visited=false and DefaultRank. It
// reports false when id was already present.
func (g *Graph) AddNode(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return false
	}
	n := &Node{ID: id, Rank: DefaultRank, outSet: make(map[string]struct{})}
	g.nodes[id] = n
	g.order = append(g.order, n)
	return true
}

// AddEdge records from→to. It reports false if either endpoint is missing
// or the edge already exists.
func (g *Graph) AddEdge(from, to string) bool {
	src, ok := g.nodes[from]
	if !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	if src.linksTo(to) {
		return false
	}
	src.outSet[to] = struct{}{}
	src.out = append(src.out, to)
	g.edges++
	return true
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Neighbors returns the outbound targets of id.
func (g *Graph) Neighbors(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return []string{}
	}
	return n.Out()
}

// InEdges returns, in node order, every node that links to id. It scans
// the whole graph.
func (g *Graph) InEdges(id string) []string {
	var in []string
	for _, n := range g.order {
		if n.linksTo(id) {
			in = append(in, n.ID)
		}
	}
	return in
}

// OutDegree returns the number of outbound edges of id.
func (g *Graph) OutDegree(id string) int {
	if n, ok := g.nodes[id]; ok {
		return len(n.out)
	}
	return 0
}

// Rank returns the rank of id, 0 when unknown.
func (g *Graph) Rank(id string) float64 {
	if n, ok := g.nodes[id]; ok {
		return n.Rank
	}
	return 0
}

// SetRank updates the rank of id if it exists.
func (g *Graph) SetRank(id string, rank float64) {
	if n, ok := g.nodes[id]; ok {
		n.Rank = rank
	}
}

// Visited reports whether id was marked visited; false when unknown.
func (g *Graph) Visited(id string) bool {
	if n, ok := g.nodes[id]; ok {
		return n.Visited
	}
	return false
}

// SetVisited updates the visited flag of id if it exists.
func (g *Graph) SetVisited(id string, visited bool) {
	if n, ok := g.nodes[id]; ok {
		n.Visited = visited
	}
}

// IDs returns every identifier in insertion order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.order))
	for i, n := range g.order {
		ids[i] = n.ID
	}
	return ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// String renders one "id visited rank" line per node for debugging. The
// format is not stable.
func (g *Graph) String() string {
	var b strings.Builder
	for i, n := range g.order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s   %t    %g", n.ID, n.Visited, n.Rank)
	}
	return b.String()
}
