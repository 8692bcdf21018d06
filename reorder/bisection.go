package reorder

import "sort"

// MultiLevelBisection is a nested dissection. Vertex sets of at most
// MDSwitch vertices become leaves. Protected vertices are collected into
// the root separator so they are never interior to a leaf.
type MultiLevelBisection struct {
	MDSwitch  int
	Protected []int
}

func (MultiLevelBisection) Name() string { return "multi-level nested bisection" }

type dissectNode struct {
	sep      []int
	children []*dissectNode
	height   int
}

func (m MultiLevelBisection) Reorder(g *Graph) (Result, error) {
	n := g.Order()
	mdswitch := m.MDSwitch
	if mdswitch < 1 {
		mdswitch = 1
	}

	protected := make(map[int]bool)
	for _, v := range m.Protected {
		if v >= 0 && v < n {
			protected[v] = true
		}
	}
	var rest []int
	for v := 0; v < n; v++ {
		if !protected[v] {
			rest = append(rest, v)
		}
	}

	var root *dissectNode
	if len(protected) > 0 {
		sep := make([]int, 0, len(protected))
		for v := range protected {
			sep = append(sep, v)
		}
		sort.Ints(sep)
		root = &dissectNode{sep: sep}
		if len(rest) > 0 {
			root.children = []*dissectNode{dissect(g, rest, mdswitch)}
		}
	} else if n > 0 {
		root = dissect(g, rest, mdswitch)
	}

	bu := &BottomUpGraph{}
	perm := make([]int, 0, n)
	if root != nil {
		setHeight(root)
		byLevel := make([][][]int, root.height+1)
		collect(root, byLevel)
		for _, sets := range byLevel {
			var subs []SubGraph
			for _, set := range sets {
				subs = append(subs, SubGraph{NumVerts: len(set), VertOffset: len(perm)})
				perm = append(perm, set...)
			}
			if len(subs) > 0 {
				bu.levels = append(bu.levels, subs)
			}
		}
	}
	res := resultFromPerm(perm)
	res.BottomUp = bu
	return res, nil
}

// dissect splits a sorted vertex set
func dissect(g *Graph, set []int, mdswitch int) *dissectNode {
	if len(set) <= mdswitch {
		return &dissectNode{sep: set}
	}
	in := membership(set)

	comps := subsetComponents(g, set, in)
	if len(comps) > 1 {
		a := append([]int(nil), comps[0]...)
		var b []int
		for i, c := range comps[1:] {
			if len(a) < len(set)/2 && i < len(comps)-2 {
				a = append(a, c...)
			} else {
				b = append(b, c...)
			}
		}
		sort.Ints(a)
		sort.Ints(b)
		return &dissectNode{children: []*dissectNode{dissect(g, a, mdswitch), dissect(g, b, mdswitch)}}
	}

	start := set[0]
	for _, v := range set[1:] {
		if g.Degree(v) < g.Degree(start) {
			start = v
		}
	}
	_, levels := g.PseudoPeripheral(start, func(v int) bool { return in[v] })
	if len(levels) < 3 {
		return &dissectNode{sep: set}
	}

	// separator level closest to the median
	k, best := 1, -1
	before := len(levels[0])
	for l := 1; l < len(levels)-1; l++ {
		after := len(set) - before - len(levels[l])
		diff := before - after
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < best {
			k, best = l, diff
		}
		before += len(levels[l])
	}

	side := make(map[int]int, len(set))
	for l, lev := range levels {
		for _, v := range lev {
			switch {
			case l < k:
				side[v] = 0
			case l == k:
				side[v] = 1
			default:
				side[v] = 2
			}
		}
	}
	// separator vertices not touching the far side move to the near side
	for _, v := range levels[k] {
		touches := false
		for _, w := range g.Neighbours(v) {
			if in[w] && side[w] == 2 {
				touches = true
				break
			}
		}
		if !touches {
			side[v] = 0
		}
	}

	var a, sep, b []int
	for _, v := range set {
		switch side[v] {
		case 0:
			a = append(a, v)
		case 1:
			sep = append(sep, v)
		default:
			b = append(b, v)
		}
	}
	return &dissectNode{sep: sep, children: []*dissectNode{dissect(g, a, mdswitch), dissect(g, b, mdswitch)}}
}

func membership(set []int) map[int]bool {
	in := make(map[int]bool, len(set))
	for _, v := range set {
		in[v] = true
	}
	return in
}

func subsetComponents(g *Graph, set []int, in map[int]bool) [][]int {
	seen := make(map[int]bool, len(set))
	var comps [][]int
	for _, v := range set {
		if seen[v] {
			continue
		}
		var comp []int
		for _, lev := range g.LevelStructure(v, func(w int) bool { return in[w] }) {
			for _, w := range lev {
				seen[w] = true
				comp = append(comp, w)
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	return comps
}

func setHeight(nd *dissectNode) {
	nd.height = 0
	for _, c := range nd.children {
		setHeight(c)
		if c.height+1 > nd.height {
			nd.height = c.height + 1
		}
	}
}

// collect places every non-empty separator on the level given by its
// height, children before parents and left before right
func collect(nd *dissectNode, byLevel [][][]int) {
	for _, c := range nd.children {
		collect(c, byLevel)
	}
	if len(nd.sep) > 0 {
		byLevel[nd.height] = append(byLevel[nd.height], nd.sep)
	}
}
