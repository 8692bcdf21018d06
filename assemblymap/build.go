// Package assemblymap numbers the degrees of freedom of a continuous
// spectral/hp discretisation of a 2D mesh distributed over several ranks.
//
// Construction runs in phases on one rank-local builder: boundary
// classification, distributed consistency resolution, coupling graph
// construction, reordering, global numbering, universal numbering and,
// for multi-level static condensation, the recursive construction of the
// next level. Every rank of the communicator must call Build with the same
// options; all cross-rank traffic goes through blocking collectives.
package assemblymap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/explist"
	"github.com/SuPenghui/nektar/mesh"
	"github.com/SuPenghui/nektar/reorder"
)

// ErrPeerFailed is returned on ranks whose own construction succeeded while
// another rank's failed
var ErrPeerFailed = errors.New("assembly map construction failed on another rank")

// Expansions is the list of local elements of a field
type Expansions interface {
	NumElements() int
	Element(i int) element.Expansion
	CoeffOffset(i int) int
	NumCoeffs() int
}

// BoundaryRegion is the trace of a field on one boundary region
type BoundaryRegion interface {
	Condition() mesh.BoundaryType
	NumSegments() int
	Segment(j int) element.Expansion
	CoeffOffset(j int) int
	NumCoeffs() int
}

// Input is everything one rank contributes to the map
type Input struct {
	Exp           Expansions
	BndCondExp    []BoundaryRegion
	PeriodicVerts mesh.PeriodicMap
	PeriodicEdges mesh.PeriodicMap

	// CheckIfSystemSingular pins one vertex when no boundary condition
	// fixes the solution
	CheckIfSystemSingular bool
}

// InputFromField wraps a discretised field
func InputFromField(f *explist.Field, checkIfSystemSingular bool) Input {
	in := Input{
		Exp:                   f.Exp,
		PeriodicVerts:         f.PeriodicVerts,
		PeriodicEdges:         f.PeriodicEdges,
		CheckIfSystemSingular: checkIfSystemSingular,
	}
	for _, r := range f.BndRegions {
		in.BndCondExp = append(in.BndCondExp, r)
	}
	return in
}

const (
	vertKind = iota
	edgeKind
	interiorKind
)

// mapBuilder carries the state of one construction from phase to phase
type mapBuilder struct {
	c    comm.Communicator
	opts Options
	log  *slog.Logger
	in   Input

	exps  []element.Expansion2D
	conds []mesh.BoundaryType
	segs  [][]element.Expansion1D

	// degrees of freedom per mesh vertex and edge
	dofs [2]map[int]int

	// graph vertex of each mesh vertex, edge and element interior
	reordered   [3]map[int]int
	nextDirID   int
	firstNonDir int

	nExtraDirichlet int
	extraDirVerts   map[int]bool
	systemSingular  bool
	pinnedHere      bool

	// temporary ids of the free graph vertices, before reordering
	temp                 [3]map[int]int
	nTemp                int
	numNonDirVertexModes int
	numNonDirEdges       int

	graph     *reorder.Graph
	protected []int
	result    reorder.Result

	lowestStaticCondLevel int
}

// Build constructs the assembly map of one rank. It is collective over c.
func Build(c comm.Communicator, in Input, opts Options) (*AssemblyMap, error) {
	if _, err := StrategyFor(opts.SolnType, 0, nil); err != nil {
		return nil, err
	}
	b, err := newMapBuilder(c, in, opts)
	if err = agree(c, err); err != nil {
		return nil, err
	}

	b.classifyDirichlet()
	if err := b.pinSingular(); err != nil {
		return nil, err
	}
	b.inheritPeriodic()
	b.exchangeDirichlet()
	b.inheritPeriodic()
	b.log.Debug("dirichlet classification",
		"rank", c.Rank(),
		"dirichletGraphVerts", b.firstNonDir,
		"extraDirichlet", b.nExtraDirichlet,
		"singular", b.systemSingular)

	if err := agree(c, b.numberPeriodic()); err != nil {
		return nil, err
	}
	b.buildGraph()
	b.tagPartitionBoundary()
	if err := agree(c, b.reorder()); err != nil {
		return nil, err
	}
	b.applyOrder()

	m := b.number()
	b.setUpUniversal(m)
	b.weightExtraDirichlet(m)
	m.hash = reduceHash(c, m.l2g)

	if err := b.nextLevel(m); err != nil {
		return nil, err
	}
	b.log.Info("assembly map built",
		"rank", c.Rank(),
		"solnType", opts.SolnType.String(),
		"localCoeffs", m.numLocalCoeffs,
		"globalCoeffs", m.numGlobalCoeffs,
		"globalBndCoeffs", m.numGlobalBndCoeffs,
		"globalDirBndCoeffs", m.numGlobalDirBndCoeffs,
		"levels", m.NumLevels(),
		"hash", m.hash)
	return m, nil
}

func newMapBuilder(c comm.Communicator, in Input, opts Options) (*mapBuilder, error) {
	b := &mapBuilder{
		c:             c,
		opts:          opts,
		log:           opts.logger(),
		in:            in,
		extraDirVerts: make(map[int]bool),
	}
	for k := range b.reordered {
		b.reordered[k] = make(map[int]int)
		b.temp[k] = make(map[int]int)
	}
	if b.in.PeriodicVerts == nil {
		b.in.PeriodicVerts = mesh.PeriodicMap{}
	}
	if b.in.PeriodicEdges == nil {
		b.in.PeriodicEdges = mesh.PeriodicMap{}
	}

	b.dofs[vertKind] = make(map[int]int)
	b.dofs[edgeKind] = make(map[int]int)
	for i := 0; i < in.Exp.NumElements(); i++ {
		e, err := element.As2D(in.Exp.Element(i))
		if err != nil {
			return nil, err
		}
		for j := 0; j < e.Nverts(); j++ {
			b.dofs[vertKind][e.VertexID(j)] = 1
			n := e.EdgeNcoeffs(j) - 2
			if prev, ok := b.dofs[edgeKind][e.EdgeID(j)]; ok && prev != n {
				return nil, fmt.Errorf("edge %d carries %d interior modes in one element and %d in element %d",
					e.EdgeID(j), prev, n, e.ID())
			}
			b.dofs[edgeKind][e.EdgeID(j)] = n
		}
		b.exps = append(b.exps, e)
	}

	for i, r := range in.BndCondExp {
		b.conds = append(b.conds, r.Condition())
		var segs []element.Expansion1D
		for j := 0; j < r.NumSegments(); j++ {
			s, err := element.As1D(r.Segment(j))
			if err != nil {
				return nil, fmt.Errorf("boundary region %d: %w", i, err)
			}
			segs = append(segs, s)
		}
		b.segs = append(b.segs, segs)
	}
	return b, nil
}

// agree makes a local failure collective so every rank returns an error
// and none is left waiting in a later collective
func agree(c comm.Communicator, err error) error {
	flag := 0
	if err != nil {
		flag = 1
	}
	if c.AllReduceInt(flag, comm.ReduceMax) == 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrPeerFailed
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
