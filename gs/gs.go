// Package gs combines values held at equal ids on one or more ranks and
// places the combined value back at every holder.
package gs

import (
	"fmt"
	"math"
	"sort"

	"github.com/SuPenghui/nektar/comm"
)

// Partner lists the local indices whose ids are also held by Rank
type Partner struct {
	Rank    int
	Indices []int
}

// GatherScatter holds the exchange pattern for a list of local ids. Ids
// below zero take no part in any exchange.
type GatherScatter struct {
	c   comm.Communicator
	ids []int

	// Shared ids, identical on every rank, and their position
	shared    []int
	sharedPos map[int]int

	owners   map[int][]int // id -> ranks holding it, for locally held ids
	partners []Partner
}

// Init exchanges the id lists of all ranks. It is collective.
func Init(ids []int, c comm.Communicator) *GatherScatter {
	g := &GatherScatter{
		c:         c,
		ids:       append([]int(nil), ids...),
		sharedPos: make(map[int]int),
		owners:    make(map[int][]int),
	}

	seen := make(map[int]bool)
	var unique []int
	for _, id := range ids {
		if id >= 0 && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Ints(unique)

	all, counts, offsets := comm.AllGatherInts(c, unique)

	holders := make(map[int][]int)
	for p := range counts {
		for _, id := range all[offsets[p] : offsets[p]+counts[p]] {
			holders[id] = append(holders[id], p)
		}
	}
	for id, ranks := range holders {
		if len(ranks) > 1 {
			g.shared = append(g.shared, id)
		}
		if seen[id] {
			g.owners[id] = ranks
		}
	}
	sort.Ints(g.shared)
	for pos, id := range g.shared {
		g.sharedPos[id] = pos
	}

	byRank := make(map[int][]int)
	for i, id := range g.ids {
		if _, ok := g.sharedPos[id]; !ok {
			continue
		}
		for _, p := range g.owners[id] {
			if p != c.Rank() {
				byRank[p] = append(byRank[p], i)
			}
		}
	}
	for p := 0; p < c.Size(); p++ {
		if idx, ok := byRank[p]; ok {
			g.partners = append(g.partners, Partner{Rank: p, Indices: idx})
		}
	}
	return g
}

// Gather combines the values at equal ids, first locally then across ranks,
// and writes the result back into vals. It is collective.
func (g *GatherScatter) Gather(vals []float64, op comm.ReduceOperator) {
	if len(vals) != len(g.ids) {
		panic(fmt.Sprintf("gs: %d values for %d ids", len(vals), len(g.ids)))
	}
	combined := make(map[int]float64)
	for i, id := range g.ids {
		if id < 0 {
			continue
		}
		if cur, ok := combined[id]; ok {
			combined[id] = apply(cur, vals[i], op)
		} else {
			combined[id] = vals[i]
		}
	}

	dense := make([]float64, len(g.shared))
	for k := range dense {
		dense[k] = identity(op)
	}
	for id, v := range combined {
		if pos, ok := g.sharedPos[id]; ok {
			dense[pos] = v
		}
	}
	g.c.AllReduceFloats(dense, op)

	for i, id := range g.ids {
		if id < 0 {
			continue
		}
		if pos, ok := g.sharedPos[id]; ok {
			vals[i] = dense[pos]
		} else {
			vals[i] = combined[id]
		}
	}
}

// NumShared returns the number of ids held by more than one rank
func (g *GatherScatter) NumShared() int { return len(g.shared) }

// IsShared reports whether local index i holds an id shared with another rank
func (g *GatherScatter) IsShared(i int) bool {
	_, ok := g.sharedPos[g.ids[i]]
	return ok
}

// NumRanks returns how many ranks hold the id at local index i
func (g *GatherScatter) NumRanks(i int) int {
	return len(g.owners[g.ids[i]])
}

// Partners returns, per neighbouring rank, the local indices it shares
func (g *GatherScatter) Partners() []Partner { return g.partners }

// Verify checks the partner lists against the local ids
func (g *GatherScatter) Verify() error {
	for _, p := range g.partners {
		if p.Rank == g.c.Rank() || p.Rank < 0 || p.Rank >= g.c.Size() {
			return fmt.Errorf("invalid partner rank %d on rank %d", p.Rank, g.c.Rank())
		}
		for _, i := range p.Indices {
			if i < 0 || i >= len(g.ids) {
				return fmt.Errorf("partner %d: index %d out of range (%d ids)", p.Rank, i, len(g.ids))
			}
			found := false
			for _, r := range g.owners[g.ids[i]] {
				if r == p.Rank {
					found = true
				}
			}
			if !found {
				return fmt.Errorf("partner %d does not hold id %d", p.Rank, g.ids[i])
			}
		}
	}
	return nil
}

func identity(op comm.ReduceOperator) float64 {
	switch op {
	case comm.ReduceMin:
		return math.Inf(1)
	case comm.ReduceMax:
		return math.Inf(-1)
	}
	return 0
}

func apply(a, b float64, op comm.ReduceOperator) float64 {
	switch op {
	case comm.ReduceMin:
		return math.Min(a, b)
	case comm.ReduceMax:
		return math.Max(a, b)
	}
	return a + b
}
