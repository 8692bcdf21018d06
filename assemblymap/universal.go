package assemblymap

import (
	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/gs"
	"github.com/SuPenghui/nektar/mesh"
)

// periodicMin returns the smallest id of the periodic group of id
func periodicMin(pm mesh.PeriodicMap, id int) int {
	lo := id
	for _, p := range pm[id] {
		if p.ID < lo {
			lo = p.ID
		}
	}
	return lo
}

// setUpUniversal numbers every global coefficient independently of the
// partitioning: vertex v is v+1, mode k of edge e follows all vertices at
// e*maxEdgeDof+k and interior mode k of element n follows all edges at
// n*maxIntDof+k. Periodic entities take the id of the lowest member of
// their group.
func (b *mapBuilder) setUpUniversal(m *AssemblyMap) {
	bounds := []int{-1, -1, 0, 0} // vertex, edge, edge dofs, interior dofs
	for _, e := range b.exps {
		for j := 0; j < e.Nedges(); j++ {
			bounds[0] = max(bounds[0], e.VertexID(j))
			bounds[1] = max(bounds[1], e.EdgeID(j))
			bounds[2] = max(bounds[2], e.EdgeNcoeffs(j)-2)
		}
		bounds[3] = max(bounds[3], e.Ncoeffs()-e.NumBndryCoeffs())
	}
	b.c.AllReduceInts(bounds, comm.ReduceMax)
	maxVert, maxEdge, maxEdgeDof, maxIntDof := bounds[0], bounds[1], bounds[2], bounds[3]
	edgeBase := maxVert + 2
	intBase := edgeBase + (maxEdge+1)*maxEdgeDof

	m.universal = filled(m.numGlobalCoeffs, -1)
	for i, e := range b.exps {
		cnt := b.in.Exp.CoeffOffset(i)
		for j := 0; j < e.Nedges(); j++ {
			v := periodicMin(b.in.PeriodicVerts, e.VertexID(j))
			m.universal[m.l2g[cnt+e.VertexLocalIndex(j)]] = v + 1

			ed := e.EdgeID(j)
			idx, _ := e.EdgeInteriorLocalIndices(j, b.effectiveOrientation(ed, e.EdgeOrientation(j)))
			first := edgeBase + periodicMin(b.in.PeriodicEdges, ed)*maxEdgeDof
			for k := range idx {
				m.universal[m.l2g[cnt+idx[k]]] = first + k
			}
		}
		k := 0
		for c := cnt; c < cnt+e.Ncoeffs(); c++ {
			if g := m.l2g[c]; g >= m.numGlobalBndCoeffs {
				m.universal[g] = intBase + e.ID()*maxIntDof + k
				k++
			}
		}
	}
	m.universalBnd = m.universal[:m.numGlobalBndCoeffs]
	m.setUpGatherScatter()
}

// setUpGatherScatter builds the exchange patterns over the universal ids
// and flags the coefficients whose lowest holding rank is this one. It is
// collective.
func (m *AssemblyMap) setUpGatherScatter() {
	m.gsFull = gs.Init(m.universal, m.c)
	m.gsBnd = gs.Init(m.universalBnd, m.c)

	rank := make([]float64, m.numGlobalCoeffs)
	for i := range rank {
		rank[i] = float64(m.c.Rank())
	}
	m.gsFull.Gather(rank, comm.ReduceMin)
	m.universalUnique = make([]int, m.numGlobalCoeffs)
	for i, r := range rank {
		if int(r) == m.c.Rank() {
			m.universalUnique[i] = 1
		}
	}
}

// weightExtraDirichlet sets the weight of every extra Dirichlet record to
// one over the number of ranks recording the same coefficient
func (b *mapBuilder) weightExtraDirichlet(m *AssemblyMap) {
	valence := make([]float64, m.numGlobalBndCoeffs)
	for _, recs := range m.extraDirDofs {
		for _, r := range recs {
			valence[r.GlobalID] = 1
		}
	}
	m.UniversalAssembleBnd(valence)
	for region, recs := range m.extraDirDofs {
		for i := range recs {
			m.extraDirDofs[region][i].Weight = 1 / valence[recs[i].GlobalID]
		}
	}
}
