package assemblymap

import (
	"fmt"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/mesh"
)

// classifyDirichlet numbers the edges and vertices of Dirichlet regions
// first, in the order the regions list them, and decides whether this rank
// alone would leave the system singular
func (b *mapBuilder) classifyDirichlet() {
	singular := true
	for i, cond := range b.conds {
		if cond != mesh.Neumann {
			singular = false
		}
		if cond != mesh.Dirichlet {
			continue
		}
		for _, s := range b.segs[i] {
			b.reordered[edgeKind][s.EdgeID()] = b.nextDirID
			b.nextDirID++
			for k := 0; k < 2; k++ {
				b.markDirichletVertex(s.VertexID(k))
			}
		}
	}
	b.systemSingular = singular
}

// markDirichletVertex reports whether v was newly marked. A vertex with a
// local periodic partner that is already Dirichlet shares its graph vertex.
func (b *mapBuilder) markDirichletVertex(v int) bool {
	if _, ok := b.reordered[vertKind][v]; ok {
		return false
	}
	for _, p := range b.in.PeriodicVerts[v] {
		if id, ok := b.reordered[vertKind][p.ID]; ok && p.IsLocal {
			b.reordered[vertKind][v] = id
			return true
		}
	}
	b.reordered[vertKind][v] = b.nextDirID
	b.nextDirID++
	return true
}

// pinSingular fixes one vertex when no rank has anything but Neumann
// conditions. The rank with the most non-empty boundary regions picks the
// vertex and the others learn it through a sum in which they add zero.
func (b *mapBuilder) pinSingular() error {
	b.systemSingular = b.c.AllReduceInt(b2i(b.systemSingular), comm.ReduceMin) == 1

	counts := make([]int, b.c.Size())
	for _, segs := range b.segs {
		if len(segs) > 0 {
			counts[b.c.Rank()]++
		}
	}
	b.c.AllReduceInts(counts, comm.ReduceSum)
	chooser := 0
	for p, n := range counts {
		if n > counts[chooser] {
			chooser = p
		}
	}

	pinning := b.systemSingular && b.in.CheckIfSystemSingular
	pin := 0
	var err error
	if pinning && chooser == b.c.Rank() {
		pin, err = b.choosePin()
		if err == nil {
			b.markDirichletVertex(pin)
			b.pinnedHere = true
		}
	}
	if err = agree(b.c, err); err != nil {
		return err
	}
	pin = b.c.AllReduceInt(pin, comm.ReduceSum)
	if !pinning {
		b.systemSingular = false
		return nil
	}
	b.log.Debug("pinning singular system", "rank", b.c.Rank(), "vertex", pin, "chooser", chooser)

	if chooser != b.c.Rank() {
		for _, v := range b.in.PeriodicVerts.Keys() {
			if _, ok := b.reordered[vertKind][v]; ok {
				continue
			}
			for _, p := range b.in.PeriodicVerts[v] {
				if !p.IsLocal && p.ID == pin {
					b.markDirichletVertex(v)
					break
				}
			}
		}
	}
	return nil
}

func (b *mapBuilder) choosePin() (int, error) {
	switch {
	case b.opts.SingularElement != nil:
		k := *b.opts.SingularElement
		if k < 0 || k >= len(b.exps) {
			return 0, fmt.Errorf("singular element %d outside the %d local elements: %w",
				k, len(b.exps), ErrSingularOverride)
		}
		return b.exps[k].VertexID(0), nil
	case b.opts.SingularVertex != nil:
		v := *b.opts.SingularVertex
		if v < 0 || !b.holdsVertex(v) {
			return 0, fmt.Errorf("singular vertex %d is not a vertex of rank %d: %w",
				v, b.c.Rank(), ErrSingularOverride)
		}
		return v, nil
	}

	last := -1
	for i, segs := range b.segs {
		if len(segs) > 0 {
			last = i
		}
	}
	if last < 0 {
		if len(b.exps) == 0 {
			return 0, fmt.Errorf("no local element to pin: %w", ErrSingularOverride)
		}
		return b.exps[0].VertexID(0), nil
	}
	segs := b.segs[last]
	return segs[len(segs)-1].VertexID(0), nil
}

// holdsVertex reports whether v belongs to a local element or is a periodic
// partner of one
func (b *mapBuilder) holdsVertex(v int) bool {
	if _, ok := b.dofs[vertKind][v]; ok {
		return true
	}
	for _, partners := range b.in.PeriodicVerts {
		for _, p := range partners {
			if p.ID == v {
				return true
			}
		}
	}
	return false
}
