package reorder

import "sort"

// Result of a reordering. Perm[newPos] is the vertex placed at newPos and
// Iperm[vertex] its new position. BottomUp is set by strategies that build
// a multi-level structure.
type Result struct {
	Perm     []int
	Iperm    []int
	BottomUp *BottomUpGraph
}

// Strategy orders the vertices of a coupling graph
type Strategy interface {
	Name() string
	Reorder(g *Graph) (Result, error)
}

func resultFromPerm(perm []int) Result {
	iperm := make([]int, len(perm))
	for pos, v := range perm {
		iperm[v] = pos
	}
	return Result{Perm: perm, Iperm: iperm}
}

func identityPerm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// Identity keeps the discovery order
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Reorder(g *Graph) (Result, error) {
	return resultFromPerm(identityPerm(g.Order())), nil
}

// CuthillMcKee is the reverse Cuthill-McKee bandwidth reduction. Each
// component starts from a pseudo-peripheral vertex and neighbours are
// queued by increasing degree, ties by id. The natural order is kept when
// the reversed ordering does not reduce the bandwidth.
type CuthillMcKee struct{}

func (CuthillMcKee) Name() string { return "reverse Cuthill-McKee" }

func (CuthillMcKee) Reorder(g *Graph) (Result, error) {
	n := g.Order()
	all := func(int) bool { return true }
	visited := make([]bool, n)
	order := make([]int, 0, n)

	for _, comp := range g.Components() {
		start := comp[0]
		for _, v := range comp[1:] {
			if g.Degree(v) < g.Degree(start) {
				start = v
			}
		}
		root, _ := g.PseudoPeripheral(start, all)

		queue := []int{root}
		visited[root] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)

			var next []int
			for _, w := range g.Neighbours(v) {
				if !visited[w] {
					visited[w] = true
					next = append(next, w)
				}
			}
			sort.SliceStable(next, func(i, j int) bool {
				return g.Degree(next[i]) < g.Degree(next[j])
			})
			queue = append(queue, next...)
		}
	}

	perm := make([]int, n)
	for i, v := range order {
		perm[n-1-i] = v
	}
	rcm := resultFromPerm(perm)
	natural := resultFromPerm(identityPerm(n))
	if Bandwidth(g, rcm.Iperm) > Bandwidth(g, natural.Iperm) {
		return natural, nil
	}
	return rcm, nil
}
