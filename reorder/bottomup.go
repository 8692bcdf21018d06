package reorder

import "fmt"

// SubGraph is a contiguous block of reordered vertices condensed together
// at one level. DofOffset counts from the first free degree of freedom.
type SubGraph struct {
	NumVerts   int
	VertOffset int
	NumDofs    int
	DofOffset  int
}

// BottomUpGraph is the separator tree of a nested bisection stored level
// by level. Level 0 holds the leaf sub-domains; the last level holds the
// root separator. Vertices are numbered level after level, so each
// subgraph occupies a contiguous range.
type BottomUpGraph struct {
	levels [][]SubGraph
}

// NumLevels returns the number of levels
func (b *BottomUpGraph) NumLevels() int {
	if b == nil {
		return 0
	}
	return len(b.levels)
}

// Level returns the subgraphs of level l
func (b *BottomUpGraph) Level(l int) []SubGraph {
	return b.levels[l]
}

// NumPatchesWithInterior returns how many subgraphs are condensed at level l
func (b *BottomUpGraph) NumPatchesWithInterior(l int) int {
	return len(b.levels[l])
}

// ExpandWithVertexWeights converts vertex ranges into degree of freedom
// ranges, weights indexed by reordered position
func (b *BottomUpGraph) ExpandWithVertexWeights(weights []int) error {
	prefix := make([]int, len(weights)+1)
	for i, w := range weights {
		prefix[i+1] = prefix[i] + w
	}
	for l := range b.levels {
		for s := range b.levels[l] {
			sg := &b.levels[l][s]
			end := sg.VertOffset + sg.NumVerts
			if end >= len(prefix) {
				return fmt.Errorf("subgraph %d of level %d ends at vertex %d, only %d weights",
					s, l, end, len(weights))
			}
			sg.DofOffset = prefix[sg.VertOffset]
			sg.NumDofs = prefix[end] - sg.DofOffset
		}
	}
	return nil
}

// FirstDofOfLevel returns the first free degree of freedom at level l, or
// the total when l is past the last level
func (b *BottomUpGraph) FirstDofOfLevel(l int) int {
	if l < len(b.levels) && len(b.levels[l]) > 0 {
		return b.levels[l][0].DofOffset
	}
	last := b.levels[len(b.levels)-1]
	sg := last[len(last)-1]
	return sg.DofOffset + sg.NumDofs
}

// SubGraphOfDof returns the level and subgraph index holding free degree of
// freedom d
func (b *BottomUpGraph) SubGraphOfDof(d int) (level, sub int) {
	for l, subs := range b.levels {
		for s, sg := range subs {
			if d >= sg.DofOffset && d < sg.DofOffset+sg.NumDofs {
				return l, s
			}
		}
	}
	return -1, -1
}

// String summarises the level sizes
func (b *BottomUpGraph) String() string {
	s := ""
	for l, subs := range b.levels {
		n := 0
		for _, sg := range subs {
			n += sg.NumVerts
		}
		s += fmt.Sprintf("level %d: %d subgraphs, %d vertices\n", l, len(subs), n)
	}
	return s
}
