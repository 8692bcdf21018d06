package element

// QuadExp is a quadrilateral expansion with the same number of modes in both
// directions
type QuadExp struct {
	expansion2D
	nmodes int
	family BasisFamily
}

// NewQuadExp lays out the coefficients of a quadrilateral. verts are the mesh
// vertex ids in counter clockwise order, edge j joins vertex j to vertex j+1.
//
// Modal layout: coefficient (p,q) sits at q*P+p with modes 0 and 1 the
// vertex modes. Nodal layout: node (i,j) sits at j*P+i on a tensor grid.
// In both layouts edges 2 and 3 are parameterised against the traversal.
func NewQuadExp(id int, verts, edges []int, orient []Orientation, nmodes int, family BasisFamily) (*QuadExp, error) {
	if err := checkTopology("quad", id, nmodes, verts, edges, orient, 4); err != nil {
		return nil, err
	}
	P := nmodes
	q := &QuadExp{nmodes: P, family: family}
	q.id = id
	q.geom = Quad
	q.verts = append([]int(nil), verts...)
	q.edges = append([]int(nil), edges...)
	q.orient = append([]Orientation(nil), orient...)
	q.ncoeffs = P * P
	q.nbnd = 4 * (P - 1)
	q.edgeReversed = []bool{false, false, true, true}
	q.edgeNcoeffs = []int{P, P, P, P}
	q.edgeIdx = make([][]int, 4)

	basis := ModifiedA
	if family == Nodal {
		basis = GLLLagrange
	}
	q.edgeBasis = []BasisType{basis, basis, basis, basis}

	switch family {
	case Modal:
		q.vertexIdx = []int{0, 1, P + 1, P}
		for k := 2; k < P; k++ {
			q.edgeIdx[0] = append(q.edgeIdx[0], k)
			q.edgeIdx[1] = append(q.edgeIdx[1], k*P+1)
			q.edgeIdx[2] = append(q.edgeIdx[2], P+k)
			q.edgeIdx[3] = append(q.edgeIdx[3], k*P)
		}
	default:
		q.vertexIdx = []int{0, P - 1, P*P - 1, P * (P - 1)}
		for k := 1; k < P-1; k++ {
			q.edgeIdx[0] = append(q.edgeIdx[0], k)
			q.edgeIdx[1] = append(q.edgeIdx[1], k*P+P-1)
			q.edgeIdx[2] = append(q.edgeIdx[2], (P-1)*P+k)
			q.edgeIdx[3] = append(q.edgeIdx[3], k*P)
		}
	}
	q.props = newProperties(Quad, family, P, q.ncoeffs, 4, 4, q.nbnd)
	return q, nil
}

// InteriorLocalIndices returns the coefficients not attached to a vertex or edge
func (q *QuadExp) InteriorLocalIndices() []int {
	return interiorOf(q.ncoeffs, q.vertexIdx, q.edgeIdx)
}

func interiorOf(ncoeffs int, vertexIdx []int, edgeIdx [][]int) []int {
	onBoundary := make([]bool, ncoeffs)
	for _, i := range vertexIdx {
		onBoundary[i] = true
	}
	for _, e := range edgeIdx {
		for _, i := range e {
			onBoundary[i] = true
		}
	}
	var interior []int
	for i, b := range onBoundary {
		if !b {
			interior = append(interior, i)
		}
	}
	return interior
}
