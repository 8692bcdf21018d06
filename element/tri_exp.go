package element

// TriExp is a triangular expansion of total order nmodes-1
type TriExp struct {
	expansion2D
	nmodes int
	family BasisFamily
}

// NewTriExp lays out a triangle hierarchically: the three vertex modes, the
// interior modes of edges 0, 1 and 2, then the bubble modes. Edge 2 is
// parameterised from vertex 0 to vertex 2, against the traversal.
func NewTriExp(id int, verts, edges []int, orient []Orientation, nmodes int, family BasisFamily) (*TriExp, error) {
	if err := checkTopology("tri", id, nmodes, verts, edges, orient, 3); err != nil {
		return nil, err
	}
	P := nmodes
	t := &TriExp{nmodes: P, family: family}
	t.id = id
	t.geom = Tri
	t.verts = append([]int(nil), verts...)
	t.edges = append([]int(nil), edges...)
	t.orient = append([]Orientation(nil), orient...)
	t.ncoeffs = P * (P + 1) / 2
	t.nbnd = 3 * (P - 1)
	t.vertexIdx = []int{0, 1, 2}
	t.edgeReversed = []bool{false, false, true}
	t.edgeNcoeffs = []int{P, P, P}
	if family == Modal {
		t.edgeBasis = []BasisType{ModifiedA, ModifiedB, ModifiedB}
	} else {
		t.edgeBasis = []BasisType{GLLLagrange, GLLLagrange, GLLLagrange}
	}

	t.edgeIdx = make([][]int, 3)
	next := 3
	for j := 0; j < 3; j++ {
		for k := 0; k < P-2; k++ {
			t.edgeIdx[j] = append(t.edgeIdx[j], next)
			next++
		}
	}
	t.props = newProperties(Tri, family, P, t.ncoeffs, 3, 3, t.nbnd)
	return t, nil
}

// InteriorLocalIndices returns the bubble coefficients
func (t *TriExp) InteriorLocalIndices() []int {
	return interiorOf(t.ncoeffs, t.vertexIdx, t.edgeIdx)
}
