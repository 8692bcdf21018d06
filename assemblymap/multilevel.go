package assemblymap

import (
	"fmt"
	"sort"

	"github.com/SuPenghui/nektar/comm"
)

// nextLevel weights the separator tree by the degrees of freedom of each
// graph vertex and builds the chain of condensation levels below m
func (b *mapBuilder) nextLevel(m *AssemblyMap) error {
	if !m.solnType.IsMultiLevel() {
		return nil
	}
	var err error
	if b.nTemp > 0 {
		weights := make([]int, b.nTemp)
		for _, kind := range []int{vertKind, edgeKind} {
			for id, t := range b.temp[kind] {
				weights[b.result.Iperm[t]] = b.dofs[kind][id]
			}
		}
		err = m.bottomUp.ExpandWithVertexWeights(weights)
	}
	if err = agree(b.c, err); err != nil {
		return err
	}

	for cur := m; ; cur = cur.next {
		more := cur.bottomUp.NumLevels() > 0 &&
			cur.level < cur.bottomUp.NumLevels()-1 &&
			cur.level < cur.maxStaticCondLevel
		// every rank stops at the same level so the collectives below match
		if b.c.AllReduceInt(b2i(more), comm.ReduceMin) == 0 {
			return nil
		}
		next, err := newLevel(cur)
		if err = agree(b.c, err); err != nil {
			return err
		}
		next.setUpGatherScatter()
		next.hash = reduceHash(b.c, next.l2g)
		cur.next = next
		b.log.Debug("static condensation level",
			"rank", b.c.Rank(),
			"level", next.level,
			"patches", next.NumPatches(),
			"globalBndCoeffs", next.numGlobalBndCoeffs)
	}
}

// newLevel condenses the degrees of freedom of the separator tree level
// old.level. Each subgraph of that level becomes a patch whose interior is
// the subgraph and whose boundary is what the old patches touching it
// share with higher levels. Old patches touching no such subgraph carry
// over as patches without interior.
func newLevel(old *AssemblyMap) (*AssemblyMap, error) {
	bu := old.bottomUp
	level := old.level
	nDir := old.numGlobalDirBndCoeffs
	subs := bu.Level(level)
	firstThis := bu.FirstDofOfLevel(level)
	firstNext := bu.FirstDofOfLevel(level + 1)
	free := func(g int) int { return g - nDir + old.firstFreeDof }

	nOld := old.NumPatches()
	subOf := filled(nOld, -1)
	cnt := 0
	for p := 0; p < nOld; p++ {
		for _, g := range old.l2gBnd[cnt : cnt+old.bndPerPatch[p]] {
			if g < nDir {
				continue
			}
			d := free(g)
			if d < firstThis {
				return nil, fmt.Errorf("level %d: patch %d still holds dof %d of a lower level", level, p, d)
			}
			if d >= firstNext {
				continue
			}
			s := sort.Search(len(subs), func(i int) bool { return subs[i].DofOffset+subs[i].NumDofs > d })
			if subOf[p] >= 0 && subOf[p] != s {
				return nil, fmt.Errorf("level %d: patch %d touches subgraphs %d and %d", level, p, subOf[p], s)
			}
			subOf[p] = s
		}
		cnt += old.bndPerPatch[p]
	}

	patchOfSub := filled(len(subs), -1)
	nPatches := 0
	for _, s := range subOf {
		if s >= 0 && patchOfSub[s] < 0 {
			patchOfSub[s] = 0
		}
	}
	for s := range patchOfSub {
		if patchOfSub[s] == 0 {
			patchOfSub[s] = nPatches
			nPatches++
		}
	}
	patchOf := make([]int, nOld)
	for p, s := range subOf {
		if s >= 0 {
			patchOf[p] = patchOfSub[s]
		} else {
			patchOf[p] = nPatches
			nPatches++
		}
	}

	m := &AssemblyMap{
		c:                     old.c,
		solnType:              old.solnType,
		level:                 level + 1,
		numLocalCoeffs:        old.numLocalBndCoeffs,
		numLocalDirBndCoeffs:  old.numLocalDirBndCoeffs,
		numGlobalCoeffs:       old.numGlobalBndCoeffs,
		numGlobalBndCoeffs:    old.numGlobalBndCoeffs - (firstNext - firstThis),
		numGlobalDirBndCoeffs: nDir,
		systemSingular:        old.systemSingular,
		lowestStaticCondLevel: old.lowestStaticCondLevel,
		maxStaticCondLevel:    old.maxStaticCondLevel,
		firstFreeDof:          firstNext,
		bottomUp:              bu,
		bndPerPatch:           make([]int, nPatches),
		intPerPatch:           make([]int, nPatches),
		patchFromPrev:         make([]PatchMap, old.numLocalBndCoeffs),
	}
	newGlobal := func(g int) int {
		if g < nDir {
			return g
		}
		d := free(g)
		if d >= firstNext {
			return nDir + d - firstNext
		}
		return m.numGlobalBndCoeffs + d - firstThis
	}

	i := 0
	for p := 0; p < nOld; p++ {
		P := patchOf[p]
		for k := 0; k < old.bndPerPatch[p]; k++ {
			g := old.l2gBnd[i]
			pm := PatchMap{Patch: P, Sign: old.sign(old.l2gBndSign, i)}
			if g < nDir || free(g) >= firstNext {
				pm.IsBnd = true
				pm.Index = m.bndPerPatch[P]
				m.bndPerPatch[P]++
			} else {
				pm.Index = m.intPerPatch[P]
				m.intPerPatch[P]++
			}
			m.patchFromPrev[i] = pm
			i++
		}
	}

	offset := make([]int, nPatches+1)
	for P := 0; P < nPatches; P++ {
		offset[P+1] = offset[P] + m.bndPerPatch[P] + m.intPerPatch[P]
		m.numLocalBndCoeffs += m.bndPerPatch[P]
	}
	m.l2g = make([]int, m.numLocalCoeffs)
	for i, pm := range m.patchFromPrev {
		pos := offset[pm.Patch] + pm.Index
		if !pm.IsBnd {
			pos += m.bndPerPatch[pm.Patch]
		}
		m.l2g[pos] = newGlobal(old.l2gBnd[i])
	}
	for P := 0; P < nPatches; P++ {
		m.l2gBnd = append(m.l2gBnd, m.l2g[offset[P]:offset[P]+m.bndPerPatch[P]]...)
	}

	m.universal = filled(m.numGlobalCoeffs, -1)
	for g := 0; g < old.numGlobalBndCoeffs; g++ {
		m.universal[newGlobal(g)] = old.universal[g]
	}
	m.universalBnd = m.universal[:m.numGlobalBndCoeffs]

	m.bndBandwidth = bandwidth(m.l2gBnd, m.bndPerPatch, nil, nDir)
	m.fullBandwidth = bandwidth(m.l2g, m.bndPerPatch, m.intPerPatch, nDir)
	return m, nil
}
