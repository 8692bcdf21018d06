package mesh

import (
	"errors"
	"fmt"

	"github.com/SuPenghui/nektar/element"
)

// ErrTopology is returned for meshes whose connectivity cannot be used
var ErrTopology = errors.New("invalid mesh topology")

// Element is one cell of the mesh. Verts are counter clockwise and edge j
// joins Verts[j] to Verts[(j+1)%n]; Orient[j] is Backwards when that
// traversal runs against the stored direction of the mesh edge.
type Element struct {
	ID     int
	Shape  element.ElementGeometry
	Verts  []int
	Edges  []int
	Orient []element.Orientation
}

// BoundaryEdge locates a boundary edge on the single element that owns it
type BoundaryEdge struct {
	Edge      int
	Element   int
	LocalEdge int
}

// Region is a named composite of boundary edges
type Region struct {
	Name  string
	Edges []BoundaryEdge
}

// Mesh holds the vertex and edge topology of a 2D mesh
type Mesh struct {
	Vertices [][2]float64
	Elements []Element
	Edges    [][2]int // vertex pair in the direction first traversed
	Regions  []Region

	edgeElems [][]BoundaryEdge
}

type edgeKey struct{ a, b int }

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// NewMesh builds edges and orientations from element vertex lists
func NewMesh(verts [][2]float64, elemVerts [][]int) (*Mesh, error) {
	m := &Mesh{Vertices: verts}
	edgeIDs := make(map[edgeKey]int)

	for k, ev := range elemVerts {
		var shape element.ElementGeometry
		switch len(ev) {
		case 3:
			shape = element.Tri
		case 4:
			shape = element.Quad
		default:
			return nil, fmt.Errorf("element %d has %d vertices: %w", k, len(ev), ErrTopology)
		}
		for _, v := range ev {
			if v < 0 || v >= len(verts) {
				return nil, fmt.Errorf("element %d references vertex %d of %d: %w",
					k, v, len(verts), ErrTopology)
			}
		}
		if signedArea(verts, ev) <= 0 {
			return nil, fmt.Errorf("element %d is not counter clockwise: %w", k, ErrTopology)
		}

		n := len(ev)
		el := Element{
			ID:     k,
			Shape:  shape,
			Verts:  append([]int(nil), ev...),
			Edges:  make([]int, n),
			Orient: make([]element.Orientation, n),
		}
		for j := 0; j < n; j++ {
			a, b := ev[j], ev[(j+1)%n]
			key := keyOf(a, b)
			id, ok := edgeIDs[key]
			if !ok {
				id = len(m.Edges)
				edgeIDs[key] = id
				m.Edges = append(m.Edges, [2]int{a, b})
				m.edgeElems = append(m.edgeElems, nil)
			}
			if len(m.edgeElems[id]) == 2 {
				return nil, fmt.Errorf("edge %d-%d shared by more than two elements: %w", a, b, ErrTopology)
			}
			m.edgeElems[id] = append(m.edgeElems[id], BoundaryEdge{Edge: id, Element: k, LocalEdge: j})
			el.Edges[j] = id
			if m.Edges[id][0] == a {
				el.Orient[j] = element.Forwards
			} else {
				el.Orient[j] = element.Backwards
			}
		}
		m.Elements = append(m.Elements, el)
	}
	return m, nil
}

func signedArea(verts [][2]float64, ev []int) float64 {
	var area float64
	for j := range ev {
		p, q := verts[ev[j]], verts[ev[(j+1)%len(ev)]]
		area += p[0]*q[1] - q[0]*p[1]
	}
	return area / 2
}

// NumVertices returns the number of mesh vertices
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

// IsBoundaryEdge reports whether edge e belongs to one element only
func (m *Mesh) IsBoundaryEdge(e int) bool {
	return e >= 0 && e < len(m.edgeElems) && len(m.edgeElems[e]) == 1
}

// BoundaryEdges lists every boundary edge in edge id order
func (m *Mesh) BoundaryEdges() []BoundaryEdge {
	var out []BoundaryEdge
	for e := range m.edgeElems {
		if len(m.edgeElems[e]) == 1 {
			out = append(out, m.edgeElems[e][0])
		}
	}
	return out
}

// AddRegion registers a named boundary composite. Each edge may belong to
// one region only.
func (m *Mesh) AddRegion(name string, edges []int) error {
	for _, r := range m.Regions {
		if r.Name == name {
			return fmt.Errorf("region %q defined twice: %w", name, ErrTopology)
		}
	}
	used := make(map[int]string)
	for _, r := range m.Regions {
		for _, be := range r.Edges {
			used[be.Edge] = r.Name
		}
	}
	region := Region{Name: name}
	for _, e := range edges {
		if !m.IsBoundaryEdge(e) {
			return fmt.Errorf("region %q: edge %d is not a boundary edge: %w", name, e, ErrTopology)
		}
		if other, ok := used[e]; ok {
			return fmt.Errorf("region %q: edge %d already in region %q: %w", name, e, other, ErrTopology)
		}
		used[e] = name
		region.Edges = append(region.Edges, m.edgeElems[e][0])
	}
	m.Regions = append(m.Regions, region)
	return nil
}

// Region returns the region with the given name
func (m *Mesh) Region(name string) (Region, bool) {
	for _, r := range m.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Connectivity returns element to element connectivity per local edge, with
// an element pointing at itself across a boundary edge
func (m *Mesh) Connectivity() (EToE [][]int) {
	EToE = make([][]int, len(m.Elements))
	for k, el := range m.Elements {
		EToE[k] = make([]int, len(el.Edges))
		for j, e := range el.Edges {
			EToE[k][j] = k
			for _, be := range m.edgeElems[e] {
				if be.Element != k {
					EToE[k][j] = be.Element
				}
			}
		}
	}
	return EToE
}

func (m *Mesh) edgeMidpoint(e int) [2]float64 {
	a, b := m.Vertices[m.Edges[e][0]], m.Vertices[m.Edges[e][1]]
	return [2]float64{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

func (m *Mesh) edgeDirection(e int) [2]float64 {
	a, b := m.Vertices[m.Edges[e][0]], m.Vertices[m.Edges[e][1]]
	return [2]float64{b[0] - a[0], b[1] - a[1]}
}
