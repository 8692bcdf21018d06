// Package reorder orders the vertices of a coupling graph: identity,
// reverse Cuthill-McKee and multi-level nested bisection.
package reorder

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Graph is an undirected graph over vertices 0..n-1. Nodes and neighbours
// iterate in increasing id so every walk over it is reproducible.
type Graph struct {
	*simple.UndirectedGraph
	n int
}

// NewGraph returns a graph with n isolated vertices
func NewGraph(n int) *Graph {
	g := &Graph{UndirectedGraph: simple.NewUndirectedGraph(), n: n}
	for v := 0; v < n; v++ {
		g.AddNode(simple.Node(v))
	}
	return g
}

// Connect adds the edge a-b. Self loops and repeated edges are ignored.
func (g *Graph) Connect(a, b int) {
	if a == b || g.HasEdgeBetween(int64(a), int64(b)) {
		return
	}
	g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
}

// Order returns the number of vertices
func (g *Graph) Order() int { return g.n }

func (g *Graph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, g.n)
	for v := 0; v < g.n; v++ {
		nodes[v] = simple.Node(v)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g *Graph) From(id int64) graph.Nodes {
	nodes := graph.NodesOf(g.UndirectedGraph.From(id))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

// Neighbours returns the neighbours of v in increasing order
func (g *Graph) Neighbours(v int) []int {
	nodes := graph.NodesOf(g.UndirectedGraph.From(int64(v)))
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

// Degree returns the number of neighbours of v
func (g *Graph) Degree(v int) int {
	return g.UndirectedGraph.From(int64(v)).Len()
}

// Components returns the connected components, each sorted, ordered by
// their smallest vertex
func (g *Graph) Components() [][]int {
	cc := topo.ConnectedComponents(g)
	out := make([][]int, len(cc))
	for i, c := range cc {
		out[i] = make([]int, len(c))
		for j, n := range c {
			out[i][j] = int(n.ID())
		}
		sort.Ints(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// LevelStructure returns the breadth first levels rooted at root, walking
// only vertices for which in reports true
func (g *Graph) LevelStructure(root int, in func(int) bool) [][]int {
	var levels [][]int
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			return in(int(e.To().ID()))
		},
	}
	bf.Walk(g, simple.Node(root), func(n graph.Node, d int) bool {
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], int(n.ID()))
		return false
	})
	return levels
}

// PseudoPeripheral finds a vertex of large eccentricity in the component of
// start, restricted to in
func (g *Graph) PseudoPeripheral(start int, in func(int) bool) (int, [][]int) {
	root := start
	levels := g.LevelStructure(root, in)
	for {
		last := levels[len(levels)-1]
		cand := last[0]
		for _, v := range last[1:] {
			if g.Degree(v) < g.Degree(cand) {
				cand = v
			}
		}
		next := g.LevelStructure(cand, in)
		if len(next) <= len(levels) {
			return root, levels
		}
		root, levels = cand, next
	}
}

// Bandwidth returns the largest distance between the new positions of two
// adjacent vertices, iperm mapping old vertex to new position
func Bandwidth(g *Graph, iperm []int) int {
	bw := 0
	for v := 0; v < g.Order(); v++ {
		for _, w := range g.Neighbours(v) {
			d := iperm[v] - iperm[w]
			if d < 0 {
				d = -d
			}
			if d > bw {
				bw = d
			}
		}
	}
	return bw
}
