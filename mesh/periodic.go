package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/SuPenghui/nektar/element"
)

// BoundaryType is the kind of condition imposed on a boundary region
type BoundaryType uint8

const (
	NotDefined BoundaryType = iota
	Dirichlet
	Neumann
	Robin
	Periodic
)

func (b BoundaryType) String() string {
	switch b {
	case Dirichlet:
		return "Dirichlet"
	case Neumann:
		return "Neumann"
	case Robin:
		return "Robin"
	case Periodic:
		return "Periodic"
	}
	return "NotDefined"
}

// ParseBoundaryType accepts the single letter codes of a session file as
// well as full names
func ParseBoundaryType(s string) (BoundaryType, error) {
	switch s {
	case "D", "Dirichlet":
		return Dirichlet, nil
	case "N", "Neumann":
		return Neumann, nil
	case "R", "Robin":
		return Robin, nil
	case "P", "Periodic":
		return Periodic, nil
	}
	return NotDefined, fmt.Errorf("unknown boundary condition %q", s)
}

// PeriodicEntity is one partner of a periodic vertex or edge
type PeriodicEntity struct {
	ID      int
	Orient  element.Orientation
	IsLocal bool
}

// PeriodicMap maps an entity id to all of its periodic partners
type PeriodicMap map[int][]PeriodicEntity

// Keys returns the mapped ids in increasing order
func (pm PeriodicMap) Keys() []int {
	keys := make([]int, 0, len(pm))
	for k := range pm {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

const matchTol = 1e-9

// MatchPeriodic pairs the edges and vertices of each region pair by the
// translation between the region centroids. Vertex partners are closed over
// all pairs so a corner shared by two periodic directions lists every member
// of its group. Partners are marked local; callers holding a partition
// clear IsLocal for entities they do not own.
func (m *Mesh) MatchPeriodic(pairs [][2]string) (verts, edges PeriodicMap, err error) {
	edges = make(PeriodicMap)
	partners := simple.NewUndirectedGraph()
	link := func(a, b int) {
		if a == b {
			return
		}
		partners.SetEdge(partners.NewEdge(simple.Node(a), simple.Node(b)))
	}

	for _, pair := range pairs {
		ra, ok := m.Region(pair[0])
		if !ok {
			return nil, nil, fmt.Errorf("periodic region %q not found: %w", pair[0], ErrTopology)
		}
		rb, ok := m.Region(pair[1])
		if !ok {
			return nil, nil, fmt.Errorf("periodic region %q not found: %w", pair[1], ErrTopology)
		}
		if len(ra.Edges) != len(rb.Edges) {
			return nil, nil, fmt.Errorf("periodic regions %q and %q have %d and %d edges: %w",
				ra.Name, rb.Name, len(ra.Edges), len(rb.Edges), ErrTopology)
		}
		shift := sub(m.regionCentroid(rb), m.regionCentroid(ra))

		for _, ea := range ra.Edges {
			target := add(m.edgeMidpoint(ea.Edge), shift)
			eb := -1
			for _, cand := range rb.Edges {
				if near(m.edgeMidpoint(cand.Edge), target) {
					eb = cand.Edge
					break
				}
			}
			if eb < 0 {
				return nil, nil, fmt.Errorf("edge %d of region %q has no periodic image in %q: %w",
					ea.Edge, ra.Name, rb.Name, ErrTopology)
			}
			orient := element.Forwards
			if dot(m.edgeDirection(ea.Edge), m.edgeDirection(eb)) < 0 {
				orient = element.Backwards
			}
			edges[ea.Edge] = append(edges[ea.Edge], PeriodicEntity{ID: eb, Orient: orient, IsLocal: true})
			edges[eb] = append(edges[eb], PeriodicEntity{ID: ea.Edge, Orient: orient, IsLocal: true})

			for _, va := range m.Edges[ea.Edge] {
				vt := add(m.Vertices[va], shift)
				matched := false
				for _, vb := range m.Edges[eb] {
					if near(m.Vertices[vb], vt) {
						link(va, vb)
						matched = true
					}
				}
				if !matched {
					return nil, nil, fmt.Errorf("vertex %d of region %q has no periodic image: %w",
						va, ra.Name, ErrTopology)
				}
			}
		}
	}

	verts = make(PeriodicMap)
	for _, comp := range topo.ConnectedComponents(partners) {
		g := make([]int, len(comp))
		for i, n := range comp {
			g[i] = int(n.ID())
		}
		sort.Ints(g)
		for _, v := range g {
			for _, w := range g {
				if w != v {
					verts[v] = append(verts[v], PeriodicEntity{ID: w, Orient: element.Forwards, IsLocal: true})
				}
			}
		}
	}
	return verts, edges, nil
}

func (m *Mesh) regionCentroid(r Region) [2]float64 {
	var c [2]float64
	for _, be := range r.Edges {
		mid := m.edgeMidpoint(be.Edge)
		c[0] += mid[0]
		c[1] += mid[1]
	}
	n := float64(len(r.Edges))
	return [2]float64{c[0] / n, c[1] / n}
}

func add(a, b [2]float64) [2]float64 { return [2]float64{a[0] + b[0], a[1] + b[1]} }
func sub(a, b [2]float64) [2]float64 { return [2]float64{a[0] - b[0], a[1] - b[1]} }
func dot(a, b [2]float64) float64    { return a[0]*b[0] + a[1]*b[1] }

func near(a, b [2]float64) bool {
	return math.Abs(a[0]-b[0]) < matchTol && math.Abs(a[1]-b[1]) < matchTol
}
