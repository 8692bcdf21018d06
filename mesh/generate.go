package mesh

import (
	"fmt"
	"sort"
)

// Side names of the regions created by NewRectGrid
const (
	Bottom = "bottom"
	Right  = "right"
	Top    = "top"
	Left   = "left"
)

// NewRectGrid builds an nx by ny grid over [0,lx]x[0,ly]. With tri set each
// cell is split along its diagonal into two triangles. The four sides are
// registered as regions with their edges ordered by coordinate.
func NewRectGrid(nx, ny int, lx, ly float64, tri bool) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid needs at least one cell per direction, got %dx%d: %w", nx, ny, ErrTopology)
	}
	vid := func(i, j int) int { return j*(nx+1) + i }

	verts := make([][2]float64, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			verts = append(verts, [2]float64{coord(i, nx, lx), coord(j, ny, ly)})
		}
	}

	var elems [][]int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10, v11, v01 := vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)
			if tri {
				elems = append(elems, []int{v00, v10, v11}, []int{v00, v11, v01})
			} else {
				elems = append(elems, []int{v00, v10, v11, v01})
			}
		}
	}

	m, err := NewMesh(verts, elems)
	if err != nil {
		return nil, err
	}

	sides := map[string][]int{}
	for _, be := range m.BoundaryEdges() {
		a, b := m.Vertices[m.Edges[be.Edge][0]], m.Vertices[m.Edges[be.Edge][1]]
		switch {
		case a[1] == 0 && b[1] == 0:
			sides[Bottom] = append(sides[Bottom], be.Edge)
		case a[0] == lx && b[0] == lx:
			sides[Right] = append(sides[Right], be.Edge)
		case a[1] == ly && b[1] == ly:
			sides[Top] = append(sides[Top], be.Edge)
		case a[0] == 0 && b[0] == 0:
			sides[Left] = append(sides[Left], be.Edge)
		}
	}
	for _, name := range []string{Bottom, Right, Top, Left} {
		edges := sides[name]
		axis := 0
		if name == Right || name == Left {
			axis = 1
		}
		sort.Slice(edges, func(p, q int) bool {
			return m.edgeMidpoint(edges[p])[axis] < m.edgeMidpoint(edges[q])[axis]
		})
		if err := m.AddRegion(name, edges); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func coord(i, n int, l float64) float64 {
	if i == n {
		return l
	}
	return l * float64(i) / float64(n)
}

// NewChain is a single row of n unit quadrilaterals
func NewChain(n int) (*Mesh, error) {
	return NewRectGrid(n, 1, float64(n), 1, false)
}
