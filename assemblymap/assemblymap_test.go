package assemblymap

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/explist"
	"github.com/SuPenghui/nektar/mesh"
)

func conds(kv ...any) map[string]mesh.BoundaryType {
	out := make(map[string]mesh.BoundaryType)
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1].(mesh.BoundaryType)
	}
	return out
}

func field(t *testing.T, m *mesh.Mesh, modes int, family element.BasisFamily,
	c map[string]mesh.BoundaryType, periodic ...[2]string) *explist.Field {
	t.Helper()
	f, err := explist.Build(m, nil, 0, explist.Spec{
		NumModes:   modes,
		Family:     family,
		Conditions: c,
		Periodic:   periodic,
	})
	require.NoError(t, err)
	return f
}

func serial(t *testing.T, f *explist.Field, opts Options, checkSingular bool) *AssemblyMap {
	t.Helper()
	am, err := Build(comm.Serial{}, InputFromField(f, checkSingular), opts)
	require.NoError(t, err)
	return am
}

func withSoln(s GlobalSysSoln) Options {
	o := DefaultOptions()
	o.SolnType = s
	return o
}

// globalOfVertex returns the global id of mesh vertex v, or -1 when no
// local element touches it
func globalOfVertex(am *AssemblyMap, f *explist.Field, v int) int {
	for i := 0; i < f.Exp.NumElements(); i++ {
		e, _ := element.As2D(f.Exp.Element(i))
		for j := 0; j < e.Nverts(); j++ {
			if e.VertexID(j) == v {
				return am.LocalToGlobalMap()[f.Exp.CoeffOffset(i)+e.VertexLocalIndex(j)]
			}
		}
	}
	return -1
}

// globalsOfEdge returns the sorted global ids of the interior modes of
// mesh edge ed
func globalsOfEdge(am *AssemblyMap, f *explist.Field, ed int) []int {
	for i := 0; i < f.Exp.NumElements(); i++ {
		e, _ := element.As2D(f.Exp.Element(i))
		for j := 0; j < e.Nedges(); j++ {
			if e.EdgeID(j) != ed {
				continue
			}
			idx, _ := e.EdgeInteriorLocalIndices(j, element.Forwards)
			out := make([]int, len(idx))
			for k := range idx {
				out[k] = am.LocalToGlobalMap()[f.Exp.CoeffOffset(i)+idx[k]]
			}
			sort.Ints(out)
			return out
		}
	}
	return nil
}

func multiplicity(l2g []int, n int) []int {
	mult := make([]int, n)
	for _, g := range l2g {
		mult[g]++
	}
	return mult
}

func TestCountsOfStructuredGrid(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 4, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Dirichlet, mesh.Left, mesh.Neumann))

	for _, s := range []GlobalSysSoln{DirectFullMatrix, DirectStaticCond, IterativeStaticCond, DirectMultiLevelStaticCond} {
		am := serial(t, f, withSoln(s), false)
		// 9 vertices, 12 edges with 2 modes each, 4 interiors of 4 modes
		assert.Equal(t, 49, am.NumGlobalCoeffs(), s.String())
		assert.Equal(t, 33, am.NumGlobalBndCoeffs(), s.String())
		assert.Equal(t, 14, am.NumGlobalDirBndCoeffs(), s.String())
		assert.Equal(t, 64, am.NumLocalCoeffs(), s.String())
		assert.Equal(t, 48, am.NumLocalBndCoeffs(), s.String())
		assert.Equal(t, 16, am.NumLocalDirBndCoeffs(), s.String())
		assert.Equal(t, 3, am.NumNonDirVertexModes(), s.String())
		assert.Equal(t, 8, am.NumNonDirEdges(), s.String())
		assert.True(t, am.SignChange(), s.String())
		assert.False(t, am.SystemSingular(), s.String())
		assert.Equal(t, 4, am.NumPatches(), s.String())
	}
}

func TestNumberingIsSurjective(t *testing.T) {
	for _, tri := range []bool{false, true} {
		m, err := mesh.NewRectGrid(3, 2, 3, 2, tri)
		require.NoError(t, err)
		f := field(t, m, 5, element.Modal, conds(
			mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
			mesh.Top, mesh.Robin, mesh.Left, mesh.Dirichlet))
		am := serial(t, f, DefaultOptions(), false)

		mult := multiplicity(am.LocalToGlobalMap(), am.NumGlobalCoeffs())
		for g, n := range mult {
			assert.NotZero(t, n, "global %d has no local coefficient", g)
		}
		for _, g := range am.LocalToGlobalBndMap() {
			assert.Less(t, g, am.NumGlobalBndCoeffs())
		}
		assert.Len(t, am.LocalToGlobalBndMap(), am.NumLocalBndCoeffs())
		for _, g := range am.BndCondCoeffsToGlobalCoeffsMap() {
			assert.GreaterOrEqual(t, g, 0)
			assert.Less(t, g, am.NumGlobalBndCoeffs())
		}

		// interiors follow the boundary and are never shared
		for i := 0; i < f.Exp.NumElements(); i++ {
			e, _ := element.As2D(f.Exp.Element(i))
			q, ok := e.(interface{ InteriorLocalIndices() []int })
			require.True(t, ok)
			for _, k := range q.InteriorLocalIndices() {
				g := am.LocalToGlobalMap()[f.Exp.CoeffOffset(i)+k]
				assert.GreaterOrEqual(t, g, am.NumGlobalBndCoeffs())
				assert.Equal(t, 1, mult[g])
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	m, err := mesh.NewRectGrid(3, 3, 1, 1, true)
	require.NoError(t, err)
	c := conds(mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann, mesh.Top, mesh.Neumann, mesh.Left, mesh.Dirichlet)

	for _, s := range []GlobalSysSoln{DirectStaticCond, DirectMultiLevelStaticCond} {
		a := serial(t, field(t, m, 4, element.Modal, c), withSoln(s), false)
		b := serial(t, field(t, m, 4, element.Modal, c), withSoln(s), false)
		assert.Equal(t, a.LocalToGlobalMap(), b.LocalToGlobalMap())
		assert.Equal(t, a.LocalToGlobalSign(), b.LocalToGlobalSign())
		assert.Equal(t, a.Hash(), b.Hash())
		assert.Equal(t, a.NumLevels(), b.NumLevels())
	}
}

func TestDirichletRegionsComeFirst(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 4, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Dirichlet, mesh.Left, mesh.Neumann))
	am := serial(t, f, DefaultOptions(), false)

	bc := am.BndCondCoeffsToGlobalCoeffsMap()
	bottom := bc[0:8]
	top := bc[16:24]
	maxBottom, minTop := -1, am.NumGlobalCoeffs()
	for i := range bottom {
		maxBottom = max(maxBottom, bottom[i])
		minTop = min(minTop, top[i])
	}
	assert.Equal(t, 6, maxBottom)
	assert.Equal(t, 7, minTop)
	for _, g := range top {
		assert.Less(t, g, am.NumGlobalDirBndCoeffs())
	}
	for _, g := range bc[8:16] {
		// Neumann sides only touch Dirichlet at their corners
		if g < am.NumGlobalDirBndCoeffs() {
			assert.Contains(t, []int{
				globalOfVertex(am, f, 2), globalOfVertex(am, f, 8),
			}, g)
		}
	}
}

func TestMultiplicityMatchesSharing(t *testing.T) {
	m, err := mesh.NewRectGrid(3, 2, 3, 2, true)
	require.NoError(t, err)
	f := field(t, m, 4, element.Nodal, conds(
		mesh.Bottom, mesh.Neumann, mesh.Right, mesh.Dirichlet,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))
	am := serial(t, f, DefaultOptions(), false)
	mult := multiplicity(am.LocalToGlobalMap(), am.NumGlobalCoeffs())

	vertElems := make(map[int]int)
	edgeElems := make(map[int]int)
	for _, el := range m.Elements {
		for _, v := range el.Verts {
			vertElems[v]++
		}
		for _, e := range el.Edges {
			edgeElems[e]++
		}
	}
	for v, n := range vertElems {
		assert.Equal(t, n, mult[globalOfVertex(am, f, v)], "vertex %d", v)
	}
	for e, n := range edgeElems {
		for _, g := range globalsOfEdge(am, f, e) {
			assert.Equal(t, n, mult[g], "edge %d", e)
		}
	}
}

// reversedParam reports whether the local parameter of edge j runs against
// the counter clockwise traversal
func reversedParam(g element.ElementGeometry, j int) bool {
	if g == element.Quad {
		return j >= 2
	}
	return j == 2
}

func TestSharedEdgeSignsAgree(t *testing.T) {
	for _, tri := range []bool{false, true} {
		m, err := mesh.NewRectGrid(3, 3, 1, 1, tri)
		require.NoError(t, err)
		f := field(t, m, 5, element.Modal, conds(
			mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
			mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))
		am := serial(t, f, DefaultOptions(), false)
		require.True(t, am.SignChange())

		type use struct {
			start, k int
			sign     float64
		}
		uses := make(map[int][]use)
		for i := 0; i < f.Exp.NumElements(); i++ {
			e, _ := element.As2D(f.Exp.Element(i))
			n := e.Nverts()
			for j := 0; j < n; j++ {
				start := e.VertexID(j)
				if reversedParam(e.Geometry(), j) {
					start = e.VertexID((j + 1) % n)
				}
				idx, _ := e.EdgeInteriorLocalIndices(j, element.Forwards)
				for k := range idx {
					c := f.Exp.CoeffOffset(i) + idx[k]
					g := am.LocalToGlobalMap()[c]
					uses[g] = append(uses[g], use{start, k, am.LocalToGlobalSign()[c]})
				}
			}
		}

		shared := 0
		for g, u := range uses {
			if len(u) < 2 {
				continue
			}
			require.Len(t, u, 2)
			require.Equal(t, u[0].k, u[1].k, "global %d", g)
			want := 1.0
			if u[0].start != u[1].start && u[0].k%2 == 1 {
				want = -1
			}
			assert.Equal(t, want, u[0].sign*u[1].sign, "global %d tri=%v", g, tri)
			shared++
		}
		assert.NotZero(t, shared)
	}
}

func TestPeriodicPartnersShareGlobalIDs(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 4, element.Modal,
		conds(mesh.Left, mesh.Dirichlet, mesh.Right, mesh.Dirichlet),
		[2]string{mesh.Bottom, mesh.Top})
	require.NotEmpty(t, f.PeriodicEdges)

	for _, s := range []GlobalSysSoln{DirectStaticCond, DirectMultiLevelStaticCond} {
		am := serial(t, f, withSoln(s), false)
		for _, v := range f.PeriodicVerts.Keys() {
			for _, p := range f.PeriodicVerts[v] {
				assert.Equal(t, globalOfVertex(am, f, v), globalOfVertex(am, f, p.ID))
			}
		}
		for _, e := range f.PeriodicEdges.Keys() {
			for _, p := range f.PeriodicEdges[e] {
				assert.Equal(t, globalsOfEdge(am, f, e), globalsOfEdge(am, f, p.ID))
			}
		}
		assert.Equal(t, 12, am.NumGlobalDirBndCoeffs())
	}
}

// periodicRep returns the smallest id in the periodic group of vertex v
func periodicRep(f *explist.Field, v int) int {
	rep := v
	for _, p := range f.PeriodicVerts[v] {
		if p.ID < rep {
			rep = p.ID
		}
	}
	return rep
}

// Across a periodic pair the interior modes of the two edges meet with the
// parameterisations started at partner vertices or at opposite ends. Modal
// signs then agree or differ by (-1)^k and nodal positions coincide or run
// in reverse.
func TestPeriodicEdgeSignsAndOrder(t *testing.T) {
	type use struct {
		start, k, n int
		sign        float64
	}
	for _, tri := range []bool{false, true} {
		for _, family := range []element.BasisFamily{element.Modal, element.Nodal} {
			for _, s := range []GlobalSysSoln{DirectStaticCond, IterativeMultiLevelStaticCond} {
				name := fmt.Sprintf("tri=%v family=%v soln=%v", tri, family, s)
				m, err := mesh.NewRectGrid(2, 3, 2, 3, tri)
				require.NoError(t, err)
				f := field(t, m, 6, family,
					conds(mesh.Left, mesh.Dirichlet, mesh.Right, mesh.Neumann),
					[2]string{mesh.Bottom, mesh.Top})
				require.NotEmpty(t, f.PeriodicEdges, name)
				am := serial(t, f, withSoln(s), false)
				sign := am.LocalToGlobalSign()
				if family == element.Modal {
					require.True(t, am.SignChange(), name)
				}

				uses := make(map[int][]use)
				periodic := make(map[int]bool)
				for i := 0; i < f.Exp.NumElements(); i++ {
					e, _ := element.As2D(f.Exp.Element(i))
					n := e.Nverts()
					for j := 0; j < n; j++ {
						// indices in the order of the element's own parameter
						start, o := e.VertexID(j), element.Forwards
						if reversedParam(e.Geometry(), j) {
							start, o = e.VertexID((j+1)%n), element.Backwards
						}
						idx, _ := e.EdgeInteriorLocalIndices(j, o)
						for k := range idx {
							c := f.Exp.CoeffOffset(i) + idx[k]
							g := am.LocalToGlobalMap()[c]
							sg := 1.0
							if sign != nil {
								sg = sign[c]
							}
							uses[g] = append(uses[g], use{periodicRep(f, start), k, len(idx), sg})
							if _, ok := f.PeriodicEdges[e.EdgeID(j)]; ok {
								periodic[g] = true
							}
						}
					}
				}

				checked, flipped := 0, 0
				for g := range periodic {
					u := uses[g]
					require.Len(t, u, 2, "%s global %d", name, g)
					same := u[0].start == u[1].start
					if !same {
						flipped++
					}
					if family == element.Modal {
						require.Equal(t, u[0].k, u[1].k, "%s global %d", name, g)
						want := 1.0
						if !same && u[0].k%2 == 1 {
							want = -1
						}
						assert.Equal(t, want, u[0].sign*u[1].sign, "%s global %d", name, g)
					} else {
						if same {
							assert.Equal(t, u[0].k, u[1].k, "%s global %d", name, g)
						} else {
							assert.Equal(t, u[0].n-1, u[0].k+u[1].k, "%s global %d", name, g)
						}
						assert.Equal(t, 1.0, u[0].sign*u[1].sign, "%s global %d", name, g)
					}
					checked++
				}
				// two periodic edges of four interior modes each
				assert.Equal(t, 8, checked, name)
				if tri {
					assert.Equal(t, checked, flipped, name)
				} else {
					assert.Zero(t, flipped, name)
				}
			}
		}
	}
}

func TestDoublyPeriodicCorners(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 3, element.Modal, conds(),
		[2]string{mesh.Bottom, mesh.Top}, [2]string{mesh.Left, mesh.Right})
	require.Empty(t, f.BndRegions)

	am := serial(t, f, DefaultOptions(), false)
	corner := globalOfVertex(am, f, 0)
	for _, v := range []int{2, 6, 8} {
		assert.Equal(t, corner, globalOfVertex(am, f, v))
	}
	assert.Equal(t, globalOfVertex(am, f, 1), globalOfVertex(am, f, 7))
	assert.Equal(t, globalOfVertex(am, f, 3), globalOfVertex(am, f, 5))
	assert.Equal(t, 12, am.NumGlobalBndCoeffs())
	assert.Equal(t, 16, am.NumGlobalCoeffs())
	assert.Zero(t, am.NumGlobalDirBndCoeffs())
	assert.False(t, am.SystemSingular())

	// every rank independent id of a corner coincides
	u := am.GlobalToUniversalMap()
	assert.Equal(t, 1, u[corner])
}

func TestSingularSystemPinsOneVertex(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 2, element.Nodal, conds(
		mesh.Bottom, mesh.Neumann, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))

	am := serial(t, f, DefaultOptions(), true)
	assert.True(t, am.SystemSingular())
	assert.Equal(t, 1, am.NumGlobalDirBndCoeffs())
	assert.Equal(t, 1, am.NumLocalDirBndCoeffs())
	assert.Equal(t, 9, am.NumGlobalCoeffs())
	// start of the last segment of the last region: the top of the left side
	assert.Equal(t, 0, globalOfVertex(am, f, 6))

	am = serial(t, f, DefaultOptions(), false)
	assert.False(t, am.SystemSingular())
	assert.Zero(t, am.NumGlobalDirBndCoeffs())

	opts := DefaultOptions()
	v := 4
	opts.SingularVertex = &v
	am = serial(t, f, opts, true)
	assert.Equal(t, 0, globalOfVertex(am, f, 4))

	opts = DefaultOptions()
	k := 3
	opts.SingularElement = &k
	am = serial(t, f, opts, true)
	e, _ := element.As2D(f.Exp.Element(3))
	assert.Equal(t, 0, globalOfVertex(am, f, e.VertexID(0)))
}

func TestSingularOverrideErrors(t *testing.T) {
	m, err := mesh.NewRectGrid(1, 1, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 2, element.Nodal, conds(
		mesh.Bottom, mesh.Neumann, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))

	opts := DefaultOptions()
	k := 5
	opts.SingularElement = &k
	_, err = Build(comm.Serial{}, InputFromField(f, true), opts)
	assert.ErrorIs(t, err, ErrSingularOverride)

	opts = DefaultOptions()
	v := -1
	opts.SingularVertex = &v
	_, err = Build(comm.Serial{}, InputFromField(f, true), opts)
	assert.ErrorIs(t, err, ErrSingularOverride)

	// the 1x1 grid has vertices 0..3 only
	outside := m.NumVertices()
	opts.SingularVertex = &outside
	_, err = Build(comm.Serial{}, InputFromField(f, true), opts)
	assert.ErrorIs(t, err, ErrSingularOverride)

	inside := 3
	opts.SingularVertex = &inside
	am, err := Build(comm.Serial{}, InputFromField(f, true), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, am.NumGlobalDirBndCoeffs())
	assert.Equal(t, 0, globalOfVertex(am, f, inside))
}

func TestUnknownSolnType(t *testing.T) {
	m, err := mesh.NewRectGrid(1, 1, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 3, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))

	_, err = Build(comm.Serial{}, InputFromField(f, false), withSoln(NoSolnType))
	assert.ErrorIs(t, err, ErrUnknownSolnType)

	_, err = ParseGlobalSysSoln("DirectLU")
	assert.ErrorIs(t, err, ErrUnknownSolnType)
	s, err := ParseGlobalSysSoln("IterativeMultiLevelStaticCond")
	require.NoError(t, err)
	assert.Equal(t, IterativeMultiLevelStaticCond, s)
	assert.True(t, s.IsMultiLevel())
	assert.Equal(t, "DirectFull", DirectFullMatrix.String())
}

func TestPeriodicEdgeOnDirichletRegion(t *testing.T) {
	m, err := mesh.NewRectGrid(1, 1, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 3, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))
	bottom, _ := m.Region(mesh.Bottom)
	top, _ := m.Region(mesh.Top)
	f.PeriodicEdges = mesh.PeriodicMap{
		bottom.Edges[0].Edge: {{ID: top.Edges[0].Edge, Orient: element.Forwards, IsLocal: true}},
	}

	_, err = Build(comm.Serial{}, InputFromField(f, false), DefaultOptions())
	assert.ErrorIs(t, err, ErrPeriodicRedefined)
}

func TestReverseCuthillMcKeeNarrowsBandwidth(t *testing.T) {
	m, err := mesh.NewChain(5)
	require.NoError(t, err)
	f := field(t, m, 4, element.Modal, conds(
		mesh.Bottom, mesh.Neumann, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Dirichlet))

	rcm := serial(t, f, withSoln(DirectStaticCond), false)
	natural := serial(t, f, withSoln(IterativeStaticCond), false)
	assert.Equal(t, natural.NumGlobalBndCoeffs(), rcm.NumGlobalBndCoeffs())
	assert.LessOrEqual(t, rcm.BndSystemBandwidth(), natural.BndSystemBandwidth())
	assert.LessOrEqual(t, rcm.BndSystemBandwidth(), rcm.FullSystemBandwidth())
	assert.Nil(t, rcm.NextLevel())
	assert.Equal(t, 1, rcm.NumLevels())
}

func TestGlobalToLocalAndAssemble(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 3, 1, 1, true)
	require.NoError(t, err)
	f := field(t, m, 5, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))
	am := serial(t, f, DefaultOptions(), false)
	mult := multiplicity(am.LocalToGlobalMap(), am.NumGlobalCoeffs())

	global := make([]float64, am.NumGlobalCoeffs())
	for i := range global {
		global[i] = float64(i + 1)
	}
	local := make([]float64, am.NumLocalCoeffs())
	am.GlobalToLocal(global, local)
	back := make([]float64, am.NumGlobalCoeffs())
	am.Assemble(local, back)
	weighted := make([]float64, len(global))
	for g := range back {
		assert.InDelta(t, float64(mult[g])*global[g], back[g], 1e-12)
		weighted[g] = float64(mult[g])
	}
	assert.InDelta(t, floats.Dot(weighted, global), floats.Sum(back), 1e-9)

	bnd := make([]float64, am.NumGlobalBndCoeffs())
	copy(bnd, global)
	localBnd := make([]float64, am.NumLocalBndCoeffs())
	am.GlobalToLocalBnd(bnd, localBnd)
	backBnd := make([]float64, am.NumGlobalBndCoeffs())
	am.AssembleBnd(localBnd, backBnd)
	for g := range backBnd {
		assert.InDelta(t, float64(mult[g])*bnd[g], backBnd[g], 1e-12)
	}

	assert.Panics(t, func() { am.GlobalToLocal(global[:1], local) })
}

func TestMultiLevelChain(t *testing.T) {
	m, err := mesh.NewRectGrid(4, 4, 1, 1, false)
	require.NoError(t, err)
	f := field(t, m, 3, element.Modal, conds(
		mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
		mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann))
	opts := withSoln(DirectMultiLevelStaticCond)
	opts.MDSwitch = 4
	am := serial(t, f, opts, false)

	require.NotNil(t, am.BottomUpGraph())
	require.NotNil(t, am.NextLevel())
	assert.LessOrEqual(t, am.NumLevels(), am.BottomUpGraph().NumLevels())

	for prev, cur := am, am.NextLevel(); cur != nil; prev, cur = cur, cur.NextLevel() {
		assert.Equal(t, prev.StaticCondLevel()+1, cur.StaticCondLevel())
		assert.Equal(t, prev.NumLocalBndCoeffs(), cur.NumLocalCoeffs())
		assert.Equal(t, prev.NumGlobalBndCoeffs(), cur.NumGlobalCoeffs())
		assert.Equal(t, prev.NumGlobalDirBndCoeffs(), cur.NumGlobalDirBndCoeffs())
		assert.LessOrEqual(t, cur.NumGlobalBndCoeffs(), cur.NumGlobalCoeffs())

		offset := make([]int, cur.NumPatches()+1)
		for p := 0; p < cur.NumPatches(); p++ {
			offset[p+1] = offset[p] + cur.NumLocalBndCoeffsPerPatch()[p] + cur.NumLocalIntCoeffsPerPatch()[p]
		}
		require.Equal(t, cur.NumLocalCoeffs(), offset[cur.NumPatches()])

		pm := cur.PatchMapFromPrevLevel()
		require.Len(t, pm, prev.NumLocalBndCoeffs())
		toNew := make(map[int]int)
		fromNew := make(map[int]int)
		for i, p := range pm {
			pos := offset[p.Patch] + p.Index
			if !p.IsBnd {
				pos += cur.NumLocalBndCoeffsPerPatch()[p.Patch]
			}
			g, ng := prev.LocalToGlobalBndMap()[i], cur.LocalToGlobalMap()[pos]
			if p.IsBnd {
				assert.Less(t, ng, cur.NumGlobalBndCoeffs())
			} else {
				assert.GreaterOrEqual(t, ng, cur.NumGlobalBndCoeffs())
			}
			if g < prev.NumGlobalDirBndCoeffs() {
				assert.Equal(t, g, ng)
			}
			if old, ok := toNew[g]; ok {
				assert.Equal(t, old, ng)
			}
			if old, ok := fromNew[ng]; ok {
				assert.Equal(t, old, g)
			}
			toNew[g], fromNew[ng] = ng, g
			assert.Equal(t, 1.0, p.Sign)
		}
		assert.Len(t, toNew, cur.NumGlobalCoeffs())
		for g, ng := range toNew {
			assert.Equal(t, prev.GlobalToUniversalMap()[g], cur.GlobalToUniversalMap()[ng])
		}
	}
	last := am
	for !last.AtLastLevel() {
		last = last.NextLevel()
	}
	assert.Nil(t, last.NextLevel())

	opts.MaxStaticCondLevel = 0
	flat := serial(t, f, opts, false)
	assert.Nil(t, flat.NextLevel())
	assert.Equal(t, am.LocalToGlobalMap(), flat.LocalToGlobalMap())
}

func TestRegistrySharesEqualMaps(t *testing.T) {
	m, err := mesh.NewRectGrid(2, 2, 1, 1, false)
	require.NoError(t, err)
	c := conds(mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann, mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann)
	u := serial(t, field(t, m, 4, element.Modal, c), DefaultOptions(), false)
	v := serial(t, field(t, m, 4, element.Modal, c), DefaultOptions(), false)
	p := serial(t, field(t, m, 3, element.Modal, c), DefaultOptions(), false)

	r := NewRegistry()
	assert.Same(t, u, r.Add("u", u))
	assert.Same(t, u, r.Add("v", v))
	assert.Same(t, p, r.Add("p", p))
	got, ok := r.Get("v")
	require.True(t, ok)
	assert.Same(t, u, got)
	_, ok = r.Get("w")
	assert.False(t, ok)

	// every later equal map resolves to the first one registered
	for i := 0; i < 20; i++ {
		again := serial(t, field(t, m, 4, element.Modal, c), DefaultOptions(), false)
		assert.Same(t, u, r.Add(fmt.Sprintf("w%d", i), again))
	}
	assert.Same(t, p, r.Add("q", serial(t, field(t, m, 3, element.Modal, c), DefaultOptions(), false)))
}

// Rank 1 holds the lower triangle with the Dirichlet bottom edge, rank 0
// the upper triangle, which touches the bottom left corner only through
// its left side
func TestExtraDirichletAcrossRanks(t *testing.T) {
	m, err := mesh.NewRectGrid(1, 1, 1, 1, true)
	require.NoError(t, err)
	eToP := []int{1, 0}
	spec := explist.Spec{
		NumModes: 3,
		Family:   element.Modal,
		Conditions: conds(mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
			mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann),
	}

	maps := make([]*AssemblyMap, 2)
	fields := make([]*explist.Field, 2)
	sums := make([][]float64, 2)
	err = comm.Run(2, func(c comm.Communicator) error {
		f, err := explist.Build(m, eToP, c.Rank(), spec)
		if err != nil {
			return err
		}
		am, err := Build(c, InputFromField(f, true), DefaultOptions())
		if err != nil {
			return err
		}
		ones := make([]float64, am.NumGlobalCoeffs())
		for i := range ones {
			ones[i] = 1
		}
		am.UniversalAssemble(ones)
		maps[c.Rank()], fields[c.Rank()], sums[c.Rank()] = am, f, ones
		return nil
	})
	require.NoError(t, err)

	upper, lower := maps[0], maps[1]
	assert.Equal(t, 1, upper.NumLocalDirBndCoeffs())
	assert.Equal(t, 1, upper.NumGlobalDirBndCoeffs())
	assert.Empty(t, upper.ExtraDirDofs())
	assert.Equal(t, 0, globalOfVertex(upper, fields[0], 0))

	assert.Equal(t, 3, lower.NumLocalDirBndCoeffs())
	assert.Equal(t, 3, lower.NumGlobalDirBndCoeffs())
	recs := lower.ExtraDirDofs()[0]
	require.Len(t, recs, 1)
	assert.Equal(t, globalOfVertex(lower, fields[1], 0), recs[0].GlobalID)
	assert.Equal(t, 1.0, recs[0].Weight)

	for rank, am := range maps {
		f := fields[rank]
		g := globalOfVertex(am, f, 0)
		assert.Equal(t, 1, am.GlobalToUniversalMap()[g])
		// the diagonal joins vertices 0 and 3
		assert.Equal(t, 2.0, sums[rank][g])
		assert.Equal(t, 2.0, sums[rank][globalOfVertex(am, f, 3)])
		assert.Equal(t, upper.Hash(), am.Hash())
	}
	assert.Equal(t, 1, upper.GlobalToUniversalMapUnique()[globalOfVertex(upper, fields[0], 3)])
	assert.Equal(t, 0, lower.GlobalToUniversalMapUnique()[globalOfVertex(lower, fields[1], 3)])
}

func TestMultiLevelAcrossRanks(t *testing.T) {
	m, err := mesh.NewRectGrid(4, 2, 2, 1, false)
	require.NoError(t, err)
	eToP := []int{0, 0, 1, 1, 0, 0, 1, 1}
	spec := explist.Spec{
		NumModes: 3,
		Family:   element.Modal,
		Conditions: conds(mesh.Bottom, mesh.Dirichlet, mesh.Right, mesh.Neumann,
			mesh.Top, mesh.Neumann, mesh.Left, mesh.Neumann),
	}
	levels := make([]int, 2)
	err = comm.Run(2, func(c comm.Communicator) error {
		f, err := explist.Build(m, eToP, c.Rank(), spec)
		if err != nil {
			return err
		}
		opts := withSoln(DirectMultiLevelStaticCond)
		opts.MDSwitch = 2
		am, err := Build(c, InputFromField(f, false), opts)
		if err != nil {
			return err
		}
		levels[c.Rank()] = am.NumLevels()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, levels[0], levels[1])
	assert.Greater(t, levels[0], 1)
}
