package element

import "fmt"

// expansion2D holds the coefficient bookkeeping shared by quadrilaterals and
// triangles. Edge interior indices are stored in the order of the element's
// own coefficient parameterisation, which runs against the counter clockwise
// traversal when edgeReversed is set.
type expansion2D struct {
	id     int
	geom   ElementGeometry
	props  ElementProperties
	verts  []int
	edges  []int
	orient []Orientation

	ncoeffs      int
	nbnd         int
	vertexIdx    []int
	edgeIdx      [][]int
	edgeReversed []bool
	edgeNcoeffs  []int
	edgeBasis    []BasisType
}

func (e *expansion2D) ID() int                          { return e.id }
func (e *expansion2D) Geometry() ElementGeometry        { return e.geom }
func (e *expansion2D) Dimensions() Dimensionality       { return D2 }
func (e *expansion2D) Ncoeffs() int                     { return e.ncoeffs }
func (e *expansion2D) NumBndryCoeffs() int              { return e.nbnd }
func (e *expansion2D) GetProperties() ElementProperties { return e.props }
func (e *expansion2D) Nverts() int                      { return len(e.verts) }
func (e *expansion2D) Nedges() int                      { return len(e.edges) }
func (e *expansion2D) EdgeNcoeffs(j int) int            { return e.edgeNcoeffs[j] }
func (e *expansion2D) EdgeBasisType(j int) BasisType    { return e.edgeBasis[j] }
func (e *expansion2D) VertexID(j int) int               { return e.verts[j] }
func (e *expansion2D) EdgeID(j int) int                 { return e.edges[j] }
func (e *expansion2D) EdgeOrientation(j int) Orientation {
	return e.orient[j]
}
func (e *expansion2D) VertexLocalIndex(j int) int { return e.vertexIdx[j] }

func (e *expansion2D) EdgeInteriorLocalIndices(j int, o Orientation) (idx []int, sign []int) {
	flip := (o == Backwards) != e.edgeReversed[j]
	return edgeInteriorMap(e.edgeIdx[j], e.edgeBasis[j], flip)
}

// edgeInteriorMap orders interior modes along the mesh edge. A modal basis
// keeps its order and negates odd modes when flipped, a nodal basis reverses
// its nodes.
func edgeInteriorMap(local []int, basis BasisType, flip bool) (idx []int, sign []int) {
	n := len(local)
	idx = make([]int, n)
	sign = make([]int, n)
	for k := 0; k < n; k++ {
		idx[k] = local[k]
		sign[k] = 1
	}
	if !flip {
		return
	}
	if basis.IsModal() {
		for k := 1; k < n; k += 2 {
			sign[k] = -1
		}
		return
	}
	for k := 0; k < n; k++ {
		idx[k] = local[n-1-k]
	}
	return
}

func checkTopology(kind string, id int, nmodes int, verts, edges []int, orient []Orientation, n int) error {
	if nmodes < 2 {
		return fmt.Errorf("%s %d: need at least 2 modes per direction, got %d", kind, id, nmodes)
	}
	if len(verts) != n || len(edges) != n || len(orient) != n {
		return fmt.Errorf("%s %d: expected %d vertices, edges and orientations, got %d, %d, %d",
			kind, id, n, len(verts), len(edges), len(orient))
	}
	return nil
}
