package assemblymap

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/mesh"
)

// effectiveOrientation flips the lower numbered edge of a periodic pair
// whose directions disagree, so both sides count the shared modes the
// same way
func (b *mapBuilder) effectiveOrientation(edge int, o element.Orientation) element.Orientation {
	p, ok := b.in.PeriodicEdges[edge]
	if ok && len(p) > 0 && p[0].Orient == element.Backwards && edge < p[0].ID {
		return o.Reverse()
	}
	return o
}

// number expands the ordered graph vertices into global coefficient ids
func (b *mapBuilder) number() *AssemblyMap {
	m := &AssemblyMap{
		c:                     b.c,
		solnType:              b.opts.SolnType,
		maxStaticCondLevel:    b.opts.MaxStaticCondLevel,
		numLocalCoeffs:        b.in.Exp.NumCoeffs(),
		numNonDirVertexModes:  b.numNonDirVertexModes,
		numNonDirEdges:        b.numNonDirEdges,
		systemSingular:        b.systemSingular,
		lowestStaticCondLevel: b.lowestStaticCondLevel,
		bottomUp:              b.result.BottomUp,
	}

	// first global id of every graph vertex
	offset := make([]int, b.firstNonDir+b.nTemp+1)
	signChange := false
	for _, e := range b.exps {
		for j := 0; j < e.Nedges(); j++ {
			offset[b.reordered[vertKind][e.VertexID(j)]+1] = b.dofs[vertKind][e.VertexID(j)]
			offset[b.reordered[edgeKind][e.EdgeID(j)]+1] = b.dofs[edgeKind][e.EdgeID(j)]
			if e.EdgeNcoeffs(j) >= 4 && e.EdgeBasisType(j).IsModal() {
				signChange = true
			}
		}
		m.numLocalBndCoeffs += e.NumBndryCoeffs()
		m.bndPerPatch = append(m.bndPerPatch, e.NumBndryCoeffs())
		m.intPerPatch = append(m.intPerPatch, e.Ncoeffs()-e.NumBndryCoeffs())
	}
	for i := 1; i < len(offset); i++ {
		offset[i] += offset[i-1]
	}
	m.numGlobalDirBndCoeffs = offset[b.firstNonDir]

	m.l2g = filled(m.numLocalCoeffs, -1)
	if signChange {
		m.l2gSign = filledFloat(m.numLocalCoeffs, 1)
	}
	for i, e := range b.exps {
		cnt := b.in.Exp.CoeffOffset(i)
		for j := 0; j < e.Nedges(); j++ {
			ed := e.EdgeID(j)
			idx, sgn := e.EdgeInteriorLocalIndices(j, b.effectiveOrientation(ed, e.EdgeOrientation(j)))
			m.l2g[cnt+e.VertexLocalIndex(j)] = offset[b.reordered[vertKind][e.VertexID(j)]]
			first := offset[b.reordered[edgeKind][ed]]
			for k := range idx {
				m.l2g[cnt+idx[k]] = first + k
				if signChange {
					m.l2gSign[cnt+idx[k]] = float64(sgn[k])
				}
			}
		}
	}

	b.numberBndConditions(m, offset, signChange)

	globalID := 0
	for _, g := range m.l2g {
		if g+1 > globalID {
			globalID = g + 1
		}
	}
	m.numGlobalBndCoeffs = globalID

	for i, g := range m.l2g {
		if g < 0 {
			continue
		}
		m.l2gBnd = append(m.l2gBnd, g)
		if signChange {
			m.l2gBndSign = append(m.l2gBndSign, m.l2gSign[i])
		}
	}

	// element interiors are never shared and come last
	order := make([]int, len(b.exps))
	for i := range order {
		order[i] = i
	}
	if b.opts.DoInteriorMap {
		sort.SliceStable(order, func(p, q int) bool {
			return b.reordered[interiorKind][order[p]] < b.reordered[interiorKind][order[q]]
		})
	}
	for _, i := range order {
		start := b.in.Exp.CoeffOffset(i)
		for c := start; c < start+b.exps[i].Ncoeffs(); c++ {
			if m.l2g[c] < 0 {
				m.l2g[c] = globalID
				globalID++
			}
		}
	}
	m.numGlobalCoeffs = globalID

	m.bndBandwidth = bandwidth(m.l2gBnd, m.bndPerPatch, nil, m.numGlobalDirBndCoeffs)
	m.fullBandwidth = bandwidth(m.l2g, m.bndPerPatch, m.intPerPatch, m.numGlobalDirBndCoeffs)
	return m
}

// numberBndConditions maps the coefficients of every boundary region onto
// the global ids of the entities they trace and records the extra
// Dirichlet vertices this rank owns
func (b *mapBuilder) numberBndConditions(m *AssemblyMap, offset []int, signChange bool) {
	total := 0
	for _, r := range b.in.BndCondExp {
		total += r.NumCoeffs()
	}
	m.bndCond = filled(total, -1)
	if signChange {
		m.bndSign = filledFloat(total, 1)
	}
	m.extraDirDofs = make(map[int][]ExtraDirDof)

	locDir := 0
	base := 0
	for i, r := range b.in.BndCondExp {
		found := make(map[int]bool)
		for j, s := range b.segs[i] {
			if b.conds[i] == mesh.Dirichlet {
				locDir += s.Ncoeffs()
			}
			cnt := base + r.CoeffOffset(j)
			for k := 0; k < 2; k++ {
				v := s.VertexID(k)
				gid := offset[b.reordered[vertKind][v]]
				m.bndCond[cnt+s.VertexLocalIndex(k)] = gid
				if b.extraDirVerts[v] && !found[v] {
					m.extraDirDofs[i] = append(m.extraDirDofs[i], ExtraDirDof{
						LocalOffset: r.CoeffOffset(j) + s.VertexLocalIndex(k),
						GlobalID:    gid,
						Weight:      1,
					})
					found[v] = true
				}
			}
			ed := s.EdgeID()
			idx, sgn := s.EdgeInteriorLocalIndices(b.effectiveOrientation(ed, s.Orientation()))
			first := offset[b.reordered[edgeKind][ed]]
			for k := range idx {
				m.bndCond[cnt+idx[k]] = first + k
				if signChange {
					m.bndSign[cnt+idx[k]] = float64(sgn[k])
				}
			}
		}
		base += r.NumCoeffs()
	}
	if b.pinnedHere && locDir == 0 {
		locDir = 1
	}
	m.numLocalDirBndCoeffs = locDir + b.nExtraDirichlet
}

// bandwidth returns the widest spread of free global ids within one patch.
// Patch p holds bnd[p] entries of gids, plus ints[p] when ints is given.
func bandwidth(gids []int, bnd, ints []int, firstFree int) int {
	bw := 0
	cnt := 0
	for p := range bnd {
		size := bnd[p]
		if ints != nil {
			size += ints[p]
		}
		lo, hi := -1, -1
		for _, g := range gids[cnt : cnt+size] {
			if g < firstFree {
				continue
			}
			if lo < 0 || g < lo {
				lo = g
			}
			if g > hi {
				hi = g
			}
		}
		if lo >= 0 && hi-lo > bw {
			bw = hi - lo
		}
		cnt += size
	}
	return bw
}

// reduceHash sums the truncated FNV-1a hash of every rank's map
func reduceHash(c comm.Communicator, l2g []int) uint32 {
	h := fnv.New64a()
	var buf [8]byte
	for _, g := range l2g {
		binary.LittleEndian.PutUint64(buf[:], uint64(g))
		h.Write(buf[:])
	}
	return uint32(c.AllReduceInt(int(uint32(h.Sum64())), comm.ReduceSum))
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func filledFloat(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
