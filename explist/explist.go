// Package explist holds the part of a discretised field one rank owns: its
// element expansions, the boundary condition regions it touches and the
// periodic identifications it can see.
package explist

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/mesh"
)

// ErrBoundaryCondition is returned when a boundary region has no usable
// condition
var ErrBoundaryCondition = errors.New("invalid boundary condition")

// Spec describes how a field is discretised
type Spec struct {
	NumModes   int
	Family     element.BasisFamily
	Conditions map[string]mesh.BoundaryType // by region name
	Periodic   [][2]string                  // region pairs
}

// ExpList is an ordered list of element expansions with their coefficient
// offsets in the concatenated local coefficient vector
type ExpList struct {
	exps    []element.Expansion
	global  []int
	offsets []int
	ncoeffs int
}

// NumElements returns the number of local elements
func (l *ExpList) NumElements() int { return len(l.exps) }

// Element returns local element i
func (l *ExpList) Element(i int) element.Expansion { return l.exps[i] }

// GlobalID returns the mesh element id of local element i
func (l *ExpList) GlobalID(i int) int { return l.global[i] }

// CoeffOffset returns the first coefficient of local element i
func (l *ExpList) CoeffOffset(i int) int { return l.offsets[i] }

// NumCoeffs returns the total number of local coefficients
func (l *ExpList) NumCoeffs() int { return l.ncoeffs }

func (l *ExpList) add(globalID int, e element.Expansion) {
	l.exps = append(l.exps, e)
	l.global = append(l.global, globalID)
	l.offsets = append(l.offsets, l.ncoeffs)
	l.ncoeffs += e.Ncoeffs()
}

// BndRegion is the trace of a field on one boundary region, restricted to the
// segments owned by this rank
type BndRegion struct {
	Name string
	cond mesh.BoundaryType
	exp  ExpList
}

func (r *BndRegion) Condition() mesh.BoundaryType { return r.cond }
func (r *BndRegion) NumSegments() int             { return r.exp.NumElements() }
func (r *BndRegion) Segment(j int) element.Expansion {
	return r.exp.Element(j)
}
func (r *BndRegion) CoeffOffset(j int) int { return r.exp.CoeffOffset(j) }
func (r *BndRegion) NumCoeffs() int        { return r.exp.NumCoeffs() }

// Field is everything a rank needs to number the coefficients of one variable
type Field struct {
	Exp           *ExpList
	BndRegions    []*BndRegion
	PeriodicVerts mesh.PeriodicMap
	PeriodicEdges mesh.PeriodicMap
}

// Build discretises the elements of m that eToP assigns to rank. A nil eToP
// keeps every element. Boundary regions follow the order of m.Regions,
// periodic regions are left out of them.
func Build(m *mesh.Mesh, eToP []int, rank int, spec Spec) (*Field, error) {
	if eToP != nil && len(eToP) != len(m.Elements) {
		return nil, fmt.Errorf("partition map has %d entries for %d elements", len(eToP), len(m.Elements))
	}
	owned := func(k int) bool { return eToP == nil || eToP[k] == rank }

	f := &Field{Exp: &ExpList{}}
	localVerts := make(map[int]bool)
	localEdges := make(map[int]bool)
	for k, el := range m.Elements {
		if !owned(k) {
			continue
		}
		var (
			e   element.Expansion
			err error
		)
		switch el.Shape {
		case element.Quad:
			e, err = element.NewQuadExp(k, el.Verts, el.Edges, el.Orient, spec.NumModes, spec.Family)
		case element.Tri:
			e, err = element.NewTriExp(k, el.Verts, el.Edges, el.Orient, spec.NumModes, spec.Family)
		default:
			err = fmt.Errorf("element %d: unsupported shape %v", k, el.Shape)
		}
		if err != nil {
			return nil, err
		}
		f.Exp.add(k, e)
		for _, v := range el.Verts {
			localVerts[v] = true
		}
		for _, ed := range el.Edges {
			localEdges[ed] = true
		}
	}

	periodic := make(map[string]bool)
	for _, p := range spec.Periodic {
		periodic[p[0]] = true
		periodic[p[1]] = true
	}

	for _, r := range m.Regions {
		cond, ok := spec.Conditions[r.Name]
		if periodic[r.Name] {
			if ok && cond != mesh.Periodic {
				return nil, fmt.Errorf("region %q is periodic but has condition %v: %w",
					r.Name, cond, ErrBoundaryCondition)
			}
			continue
		}
		if !ok || cond == mesh.NotDefined {
			return nil, fmt.Errorf("region %q has no boundary condition: %w", r.Name, ErrBoundaryCondition)
		}
		if cond == mesh.Periodic {
			return nil, fmt.Errorf("region %q is marked periodic without a partner: %w", r.Name, ErrBoundaryCondition)
		}

		br := &BndRegion{Name: r.Name, cond: cond}
		for _, be := range r.Edges {
			if !owned(be.Element) {
				continue
			}
			el := m.Elements[be.Element]
			j := be.LocalEdge
			verts := [2]int{el.Verts[j], el.Verts[(j+1)%len(el.Verts)]}
			seg, err := element.NewSegExp(be.Edge, verts, el.Orient[j], spec.NumModes, spec.Family)
			if err != nil {
				return nil, err
			}
			br.exp.add(be.Edge, seg)
		}
		f.BndRegions = append(f.BndRegions, br)
	}

	if len(spec.Periodic) > 0 {
		pv, pe, err := m.MatchPeriodic(spec.Periodic)
		if err != nil {
			return nil, err
		}
		f.PeriodicVerts = restrict(pv, localVerts)
		f.PeriodicEdges = restrict(pe, localEdges)
	} else {
		f.PeriodicVerts = mesh.PeriodicMap{}
		f.PeriodicEdges = mesh.PeriodicMap{}
	}
	return f, nil
}

// restrict keeps the entries of pm referenced locally and flags each partner
// by whether this rank references it too
func restrict(pm mesh.PeriodicMap, local map[int]bool) mesh.PeriodicMap {
	out := make(mesh.PeriodicMap)
	for _, id := range pm.Keys() {
		if !local[id] {
			continue
		}
		partners := make([]mesh.PeriodicEntity, len(pm[id]))
		for i, p := range pm[id] {
			p.IsLocal = local[p.ID]
			partners[i] = p
		}
		sort.SliceStable(partners, func(a, b int) bool { return partners[a].ID < partners[b].ID })
		out[id] = partners
	}
	return out
}
