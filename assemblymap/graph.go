package assemblymap

import (
	"fmt"
	"sort"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/gs"
	"github.com/SuPenghui/nektar/reorder"
)

func (b *mapBuilder) newTemp() int {
	id := b.nTemp
	b.nTemp++
	return id
}

// numberPeriodic gives the free periodic vertices and edges their temporary
// graph vertices. Local partners share one; a partner held by another rank
// cannot be inspected, so its local side gets a graph vertex of its own.
func (b *mapBuilder) numberPeriodic() error {
	vtemp := b.temp[vertKind]
	for _, v := range b.in.PeriodicVerts.Keys() {
		if _, ok := b.dofs[vertKind][v]; !ok {
			continue
		}
		if _, ok := b.reordered[vertKind][v]; ok {
			continue
		}
		shared := -1
		for _, p := range b.in.PeriodicVerts[v] {
			if id, ok := vtemp[p.ID]; ok && p.IsLocal {
				shared = id
				break
			}
		}
		if shared < 0 {
			shared = b.newTemp()
			b.numNonDirVertexModes++
		}
		vtemp[v] = shared
	}

	etemp := b.temp[edgeKind]
	for _, e := range b.in.PeriodicEdges.Keys() {
		partners := b.in.PeriodicEdges[e]
		if _, ok := b.dofs[edgeKind][e]; !ok || len(partners) == 0 {
			continue
		}
		p := partners[0]
		if !p.IsLocal {
			if err := b.checkPeriodicEdge(e); err != nil {
				return err
			}
			etemp[e] = b.newTemp()
			continue
		}
		if e > p.ID {
			if _, ok := etemp[e]; !ok {
				return fmt.Errorf("edge %d pairs with edge %d which does not pair back: %w",
					e, p.ID, ErrPeriodicRedefined)
			}
			continue
		}
		if err := b.checkPeriodicEdge(e); err != nil {
			return err
		}
		if err := b.checkPeriodicEdge(p.ID); err != nil {
			return err
		}
		id := b.newTemp()
		etemp[e] = id
		etemp[p.ID] = id
	}
	return nil
}

func (b *mapBuilder) checkPeriodicEdge(e int) error {
	if _, ok := b.reordered[edgeKind][e]; ok {
		return fmt.Errorf("edge %d is Dirichlet: %w", e, ErrPeriodicRedefined)
	}
	if _, ok := b.temp[edgeKind][e]; ok {
		return fmt.Errorf("edge %d: %w", e, ErrPeriodicRedefined)
	}
	return nil
}

// elementGraphVerts lists the free graph vertices of local element i
func (b *mapBuilder) elementGraphVerts(i int, e element.Expansion2D) []int {
	var out []int
	for j := 0; j < e.Nverts(); j++ {
		if id, ok := b.temp[vertKind][e.VertexID(j)]; ok {
			out = append(out, id)
		}
	}
	for j := 0; j < e.Nedges(); j++ {
		if id, ok := b.temp[edgeKind][e.EdgeID(j)]; ok {
			out = append(out, id)
		}
	}
	if id, ok := b.temp[interiorKind][i]; ok {
		out = append(out, id)
	}
	return out
}

// buildGraph numbers the remaining free vertices, then edges, then element
// interiors, and connects everything that meets in an element
func (b *mapBuilder) buildGraph() {
	for _, e := range b.exps {
		for j := 0; j < e.Nverts(); j++ {
			v := e.VertexID(j)
			if _, ok := b.reordered[vertKind][v]; ok {
				continue
			}
			if _, ok := b.temp[vertKind][v]; !ok {
				b.temp[vertKind][v] = b.newTemp()
				b.numNonDirVertexModes++
			}
		}
	}
	for _, e := range b.exps {
		for j := 0; j < e.Nedges(); j++ {
			ed := e.EdgeID(j)
			if _, ok := b.reordered[edgeKind][ed]; ok {
				continue
			}
			if _, ok := b.temp[edgeKind][ed]; !ok {
				b.temp[edgeKind][ed] = b.newTemp()
			}
		}
	}
	b.numNonDirEdges = len(b.temp[edgeKind])
	if b.opts.DoInteriorMap {
		for i := range b.exps {
			b.temp[interiorKind][i] = b.newTemp()
		}
	}

	b.graph = reorder.NewGraph(b.nTemp)
	for i, e := range b.exps {
		verts := b.elementGraphVerts(i, e)
		for p := range verts {
			for q := p + 1; q < len(verts); q++ {
				b.graph.Connect(verts[p], verts[q])
			}
		}
	}
	b.log.Debug("coupling graph",
		"rank", b.c.Rank(),
		"vertices", b.nTemp,
		"edges", b.graph.Edges().Len())
}

// tagPartitionBoundary protects the free vertices and edges shared with
// another rank so nested bisection keeps them in its top separator
func (b *mapBuilder) tagPartitionBoundary() {
	if !b.opts.SolnType.IsMultiLevel() || b.c.Size() == 1 {
		return
	}
	var verts, edges []int
	seenV := make(map[int]bool)
	seenE := make(map[int]bool)
	for _, e := range b.exps {
		for j := 0; j < e.Nverts(); j++ {
			if v := e.VertexID(j); !seenV[v] {
				seenV[v] = true
				verts = append(verts, v)
			}
			if ed := e.EdgeID(j); !seenE[ed] {
				seenE[ed] = true
				edges = append(edges, ed)
			}
		}
	}

	protected := make(map[int]bool)
	for kind, ids := range [][]int{verts, edges} {
		mult := make([]float64, len(ids))
		for i := range mult {
			mult[i] = 1
		}
		gs.Init(ids, b.c).Gather(mult, comm.ReduceSum)
		for i, id := range ids {
			if mult[i] <= 1 {
				continue
			}
			if t, ok := b.temp[kind][id]; ok {
				protected[t] = true
			}
		}
	}
	for t := range protected {
		b.protected = append(b.protected, t)
	}
	sort.Ints(b.protected)
}

// reorder runs the strategy of the solution type
func (b *mapBuilder) reorder() error {
	strategy, err := StrategyFor(b.opts.SolnType, b.opts.mdswitch(), b.protected)
	if err != nil {
		return err
	}
	if b.nTemp > 0 {
		b.result, err = strategy.Reorder(b.graph)
		if err != nil {
			return fmt.Errorf("%s reordering: %w", strategy.Name(), err)
		}
	}
	b.log.Debug("reordered coupling graph",
		"rank", b.c.Rank(),
		"strategy", strategy.Name(),
		"levels", b.result.BottomUp.NumLevels(),
		"protected", len(b.protected))
	return nil
}

// applyOrder records the final graph vertex of every free vertex, edge and
// interior
func (b *mapBuilder) applyOrder() {
	if b.opts.SolnType == IterativeMultiLevelStaticCond {
		lowest := b.result.BottomUp.NumLevels() - 1
		if lowest < 0 {
			lowest = 0
		}
		b.lowestStaticCondLevel = b.c.AllReduceInt(lowest, comm.ReduceMax)
	}

	for kind := range b.temp {
		for id, t := range b.temp[kind] {
			b.reordered[kind][id] = b.result.Iperm[t] + b.firstNonDir
		}
	}
}
