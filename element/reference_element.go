package element

import "fmt"

// BasisType identifies the one dimensional basis along an edge
type BasisType uint8

const (
	NoBasisType BasisType = iota
	ModifiedA             // modal, hierarchical
	ModifiedB             // modal, collapsed direction of a triangle
	GLLLagrange           // nodal, Gauss-Lobatto-Legendre points
)

func (b BasisType) String() string {
	switch b {
	case ModifiedA:
		return "Modified_A"
	case ModifiedB:
		return "Modified_B"
	case GLLLagrange:
		return "GLL_Lagrange"
	}
	return "NoBasisType"
}

// IsModal reports whether reversing an edge changes the sign of its odd
// interior modes rather than the order of its nodes
func (b BasisType) IsModal() bool {
	return b == ModifiedA || b == ModifiedB
}

// BasisFamily selects the expansion family used for every element of a field
type BasisFamily uint8

const (
	Modal BasisFamily = iota
	Nodal
)

func (f BasisFamily) String() string {
	if f == Modal {
		return "Modal"
	}
	return "Nodal"
}

// ElementProperties contains metadata describing an element expansion
type ElementProperties struct {
	Name       string          // Full descriptive name (e.g., "Modal Quadrilateral Order 3")
	ShortName  string          // Abbreviated name (e.g., "Quad3")
	Type       ElementGeometry // Element shape
	Order      int             // Polynomial order, number of modes minus one
	Np         int             // Total number of coefficients
	NEp        int             // Number of interior coefficients per edge
	NVp        int             // Number of vertex coefficients (equals number of vertices)
	NIp        int             // Number of strictly interior coefficients
	NEdges     int             // Number of edges
	Dimensions Dimensionality
}

func newProperties(geom ElementGeometry, family BasisFamily, nmodes, ncoeffs, nverts, nedges, nbnd int) ElementProperties {
	return ElementProperties{
		Name:       fmt.Sprintf("%v %v Order %d", family, geom, nmodes-1),
		ShortName:  fmt.Sprintf("%v%d", geom, nmodes-1),
		Type:       geom,
		Order:      nmodes - 1,
		Np:         ncoeffs,
		NEp:        nmodes - 2,
		NVp:        nverts,
		NIp:        ncoeffs - nbnd,
		NEdges:     nedges,
		Dimensions: dimensionsOf(geom),
	}
}

func dimensionsOf(geom ElementGeometry) Dimensionality {
	if geom == Segment {
		return D1
	}
	return D2
}
