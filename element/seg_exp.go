package element

import "fmt"

// SegExp is the trace of an element edge used to carry boundary conditions.
// Its vertices follow the traversal of the element it was taken from.
type SegExp struct {
	edgeID int
	verts  [2]int
	orient Orientation
	basis  BasisType
	props  ElementProperties

	ncoeffs   int
	vertexIdx [2]int
	interior  []int
}

// NewSegExp builds a segment over mesh edge edgeID running from verts[0] to
// verts[1]; orient relates that direction to the mesh edge
func NewSegExp(edgeID int, verts [2]int, orient Orientation, nmodes int, family BasisFamily) (*SegExp, error) {
	if nmodes < 2 {
		return nil, fmt.Errorf("segment %d: need at least 2 modes, got %d", edgeID, nmodes)
	}
	s := &SegExp{
		edgeID:  edgeID,
		verts:   verts,
		orient:  orient,
		ncoeffs: nmodes,
	}
	if family == Modal {
		s.basis = ModifiedA
		s.vertexIdx = [2]int{0, 1}
		for k := 2; k < nmodes; k++ {
			s.interior = append(s.interior, k)
		}
	} else {
		s.basis = GLLLagrange
		s.vertexIdx = [2]int{0, nmodes - 1}
		for k := 1; k < nmodes-1; k++ {
			s.interior = append(s.interior, k)
		}
	}
	s.props = newProperties(Segment, family, nmodes, nmodes, 2, 1, nmodes)
	return s, nil
}

func (s *SegExp) ID() int                          { return s.edgeID }
func (s *SegExp) Geometry() ElementGeometry        { return Segment }
func (s *SegExp) Dimensions() Dimensionality       { return D1 }
func (s *SegExp) Ncoeffs() int                     { return s.ncoeffs }
func (s *SegExp) NumBndryCoeffs() int              { return s.ncoeffs }
func (s *SegExp) GetProperties() ElementProperties { return s.props }
func (s *SegExp) VertexID(k int) int               { return s.verts[k] }
func (s *SegExp) EdgeID() int                      { return s.edgeID }
func (s *SegExp) Orientation() Orientation         { return s.orient }
func (s *SegExp) BasisType() BasisType             { return s.basis }
func (s *SegExp) VertexLocalIndex(k int) int       { return s.vertexIdx[k] }

func (s *SegExp) EdgeInteriorLocalIndices(o Orientation) (idx []int, sign []int) {
	return edgeInteriorMap(s.interior, s.basis, o == Backwards)
}
