package element

import (
	"errors"
	"fmt"
)

type Dimensionality uint8

const (
	D0 Dimensionality = iota // points
	D1                       // segments
	D2                       // triangles, quadrilaterals
	D3
)

type ElementGeometry uint8

const (
	Tri ElementGeometry = iota
	Quad
	Segment
)

func (g ElementGeometry) String() string {
	switch g {
	case Tri:
		return "Tri"
	case Quad:
		return "Quad"
	case Segment:
		return "Segment"
	}
	return fmt.Sprintf("ElementGeometry(%d)", uint8(g))
}

// Orientation relates the local traversal direction of an edge to the
// direction of the mesh edge it refers to
type Orientation uint8

const (
	Forwards Orientation = iota
	Backwards
)

// Reverse returns the opposite orientation
func (o Orientation) Reverse() Orientation {
	if o == Forwards {
		return Backwards
	}
	return Forwards
}

func (o Orientation) String() string {
	if o == Forwards {
		return "Forwards"
	}
	return "Backwards"
}

// ErrCapability is returned when an expansion cannot be treated as the
// entity kind a caller requires
var ErrCapability = errors.New("expansion lacks required capability")

// Expansion is the part of an element expansion every shape provides
type Expansion interface {
	ID() int
	Geometry() ElementGeometry
	Dimensions() Dimensionality
	Ncoeffs() int
	NumBndryCoeffs() int
	GetProperties() ElementProperties
}

// Expansion2D is the capability needed to number the coefficients of a
// two dimensional element. Vertex j is the start of edge j when the element
// is traversed counter clockwise.
type Expansion2D interface {
	Expansion
	Nverts() int
	Nedges() int
	EdgeNcoeffs(j int) int
	EdgeBasisType(j int) BasisType
	VertexID(j int) int
	EdgeID(j int) int
	EdgeOrientation(j int) Orientation
	VertexLocalIndex(j int) int

	// EdgeInteriorLocalIndices returns, for the interior modes of edge j
	// seen with orientation o, the local coefficient index and the sign of
	// the k-th mode of the mesh edge.
	EdgeInteriorLocalIndices(j int, o Orientation) (idx []int, sign []int)
}

// Expansion1D is the capability needed to number a boundary segment
type Expansion1D interface {
	Expansion
	VertexID(k int) int
	EdgeID() int
	Orientation() Orientation
	BasisType() BasisType
	VertexLocalIndex(k int) int
	EdgeInteriorLocalIndices(o Orientation) (idx []int, sign []int)
}

// As2D checks that e is a two dimensional expansion
func As2D(e Expansion) (Expansion2D, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expansion: %w", ErrCapability)
	}
	e2, ok := e.(Expansion2D)
	if !ok || e.Dimensions() != D2 {
		return nil, fmt.Errorf("element %d (%v) is not a 2D expansion: %w",
			e.ID(), e.Geometry(), ErrCapability)
	}
	return e2, nil
}

// As1D checks that e is a boundary segment expansion
func As1D(e Expansion) (Expansion1D, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expansion: %w", ErrCapability)
	}
	e1, ok := e.(Expansion1D)
	if !ok || e.Dimensions() != D1 {
		return nil, fmt.Errorf("element %d (%v) is not a segment expansion: %w",
			e.ID(), e.Geometry(), ErrCapability)
	}
	return e1, nil
}
