package assemblymap

import (
	"sort"

	"github.com/SuPenghui/nektar/comm"
)

// exchangeDirichlet makes every rank agree on which shared vertices are
// Dirichlet. A local vertex another rank holds as Dirichlet becomes extra
// Dirichlet here, and the lowest such rank is told it owns the mismatch.
func (b *mapBuilder) exchangeDirichlet() {
	local := make([]int, 0, len(b.reordered[vertKind]))
	for v := range b.reordered[vertKind] {
		local = append(local, v)
	}
	sort.Ints(local)
	all, counts, offsets := comm.AllGatherInts(b.c, local)

	extra := make(map[int]int)
	for p := 0; p < b.c.Size(); p++ {
		if p == b.c.Rank() {
			continue
		}
		theirs := make(map[int]bool, counts[p])
		for _, v := range all[offsets[p] : offsets[p]+counts[p]] {
			theirs[v] = true
		}
		for _, e := range b.exps {
			for j := 0; j < e.Nverts(); j++ {
				v := e.VertexID(j)
				if !theirs[v] {
					continue
				}
				if b.markDirichletVertex(v) {
					extra[v] = p
					b.nExtraDirichlet++
				}
			}
		}
	}

	ids := make([]int, 0, len(extra))
	for v := range extra {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	owners := make([]int, len(ids))
	for i, v := range ids {
		owners[i] = extra[v]
	}
	allIDs, _, _ := comm.AllGatherInts(b.c, ids)
	allOwners, _, _ := comm.AllGatherInts(b.c, owners)
	for i, v := range allIDs {
		if allOwners[i] == b.c.Rank() {
			b.extraDirVerts[v] = true
		}
	}

	b.firstNonDir = b.nextDirID
}

// inheritPeriodic gives every local member of a periodic group the graph
// vertex of a Dirichlet member. It repeats until nothing changes so groups
// of more than two vertices saturate.
func (b *mapBuilder) inheritPeriodic() {
	dir := b.reordered[vertKind]
	for changed := true; changed; {
		changed = false
		for _, v := range b.in.PeriodicVerts.Keys() {
			partners := b.in.PeriodicVerts[v]
			if id, ok := dir[v]; ok {
				for _, p := range partners {
					if _, done := dir[p.ID]; p.IsLocal && !done {
						dir[p.ID] = id
						changed = true
					}
				}
				continue
			}
			for _, p := range partners {
				if !p.IsLocal {
					continue
				}
				if id, ok := dir[p.ID]; ok {
					dir[v] = id
					changed = true
					break
				}
			}
		}
	}
}
