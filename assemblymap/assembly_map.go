package assemblymap

import (
	"fmt"

	"github.com/SuPenghui/nektar/comm"
	"github.com/SuPenghui/nektar/gs"
	"github.com/SuPenghui/nektar/reorder"
)

// ExtraDirDof is a Dirichlet vertex this rank owns although another rank
// classified it. LocalOffset indexes the coefficients of its boundary
// region; Weight is one over the number of ranks holding such a record.
type ExtraDirDof struct {
	LocalOffset int
	GlobalID    int
	Weight      float64
}

// PatchMap places one local boundary coefficient of a level inside a
// patch of the next level
type PatchMap struct {
	Patch int
	Index int // within the patch's boundary or interior coefficients
	IsBnd bool
	Sign  float64
}

// AssemblyMap is the finished numbering of one rank. It is immutable and
// may be shared by any number of readers.
type AssemblyMap struct {
	c        comm.Communicator
	solnType GlobalSysSoln
	level    int

	numLocalCoeffs        int
	numLocalBndCoeffs     int
	numLocalDirBndCoeffs  int
	numGlobalCoeffs       int
	numGlobalBndCoeffs    int
	numGlobalDirBndCoeffs int
	numNonDirVertexModes  int
	numNonDirEdges        int

	l2g        []int
	l2gSign    []float64 // nil when no coefficient changes sign
	l2gBnd     []int
	l2gBndSign []float64
	bndCond    []int
	bndSign    []float64

	bndPerPatch []int
	intPerPatch []int

	extraDirDofs   map[int][]ExtraDirDof
	systemSingular bool

	hash                  uint32
	bndBandwidth          int
	fullBandwidth         int
	lowestStaticCondLevel int

	// universal numbering shared by all ranks
	universal       []int
	universalBnd    []int
	universalUnique []int
	gsFull          *gs.GatherScatter
	gsBnd           *gs.GatherScatter

	// multi-level static condensation
	maxStaticCondLevel int
	firstFreeDof       int
	bottomUp           *reorder.BottomUpGraph
	patchFromPrev      []PatchMap
	next               *AssemblyMap
}

func (m *AssemblyMap) SolnType() GlobalSysSoln { return m.solnType }

// StaticCondLevel returns 0 for the map built from the mesh and one more
// for each level of condensation below it
func (m *AssemblyMap) StaticCondLevel() int { return m.level }

func (m *AssemblyMap) NumLocalCoeffs() int        { return m.numLocalCoeffs }
func (m *AssemblyMap) NumLocalBndCoeffs() int     { return m.numLocalBndCoeffs }
func (m *AssemblyMap) NumLocalDirBndCoeffs() int  { return m.numLocalDirBndCoeffs }
func (m *AssemblyMap) NumGlobalCoeffs() int       { return m.numGlobalCoeffs }
func (m *AssemblyMap) NumGlobalBndCoeffs() int    { return m.numGlobalBndCoeffs }
func (m *AssemblyMap) NumGlobalDirBndCoeffs() int { return m.numGlobalDirBndCoeffs }
func (m *AssemblyMap) NumNonDirVertexModes() int  { return m.numNonDirVertexModes }
func (m *AssemblyMap) NumNonDirEdges() int        { return m.numNonDirEdges }
func (m *AssemblyMap) Hash() uint32               { return m.hash }
func (m *AssemblyMap) SystemSingular() bool       { return m.systemSingular }
func (m *AssemblyMap) BndSystemBandwidth() int    { return m.bndBandwidth }
func (m *AssemblyMap) FullSystemBandwidth() int   { return m.fullBandwidth }
func (m *AssemblyMap) LowestStaticCondLevel() int { return m.lowestStaticCondLevel }

// SignChange reports whether any local coefficient is negated on assembly
func (m *AssemblyMap) SignChange() bool { return m.l2gSign != nil }

// LocalToGlobalMap returns the global index of every local coefficient.
// The slice is shared and must not be modified.
func (m *AssemblyMap) LocalToGlobalMap() []int { return m.l2g }

// LocalToGlobalSign returns the sign of every local coefficient, or nil
func (m *AssemblyMap) LocalToGlobalSign() []float64 { return m.l2gSign }

// LocalToGlobalBndMap returns the global index of every local boundary
// coefficient
func (m *AssemblyMap) LocalToGlobalBndMap() []int           { return m.l2gBnd }
func (m *AssemblyMap) LocalToGlobalBndSign() []float64      { return m.l2gBndSign }
func (m *AssemblyMap) BndCondCoeffsToGlobalCoeffsMap() []int { return m.bndCond }
func (m *AssemblyMap) BndCondCoeffsToGlobalCoeffsSign() []float64 {
	return m.bndSign
}

// NumPatches returns the number of blocks condensed independently
func (m *AssemblyMap) NumPatches() int { return len(m.bndPerPatch) }

func (m *AssemblyMap) NumLocalBndCoeffsPerPatch() []int { return m.bndPerPatch }
func (m *AssemblyMap) NumLocalIntCoeffsPerPatch() []int { return m.intPerPatch }

// ExtraDirDofs returns the extra Dirichlet records keyed by boundary region
func (m *AssemblyMap) ExtraDirDofs() map[int][]ExtraDirDof { return m.extraDirDofs }

// GlobalToUniversalMap returns the rank independent id of each global
// coefficient
func (m *AssemblyMap) GlobalToUniversalMap() []int    { return m.universal }
func (m *AssemblyMap) GlobalToUniversalBndMap() []int { return m.universalBnd }

// GlobalToUniversalMapUnique flags with 1 the global coefficients whose
// lowest holding rank is this one
func (m *AssemblyMap) GlobalToUniversalMapUnique() []int { return m.universalUnique }

// PatchMapFromPrevLevel returns, per local boundary coefficient of the
// previous level, its place in this level. It is nil at level 0.
func (m *AssemblyMap) PatchMapFromPrevLevel() []PatchMap { return m.patchFromPrev }

// NextLevel returns the map of the next condensation level, or nil
func (m *AssemblyMap) NextLevel() *AssemblyMap { return m.next }

// BottomUpGraph returns the separator tree driving multi-level
// condensation, or nil
func (m *AssemblyMap) BottomUpGraph() *reorder.BottomUpGraph { return m.bottomUp }

// NumLevels counts this map and every level below it
func (m *AssemblyMap) NumLevels() int {
	n := 0
	for l := m; l != nil; l = l.next {
		n++
	}
	return n
}

// AtLastLevel reports whether no further condensation follows
func (m *AssemblyMap) AtLastLevel() bool { return m.next == nil }

func (m *AssemblyMap) sign(signs []float64, i int) float64 {
	if signs == nil {
		return 1
	}
	return signs[i]
}

// GlobalToLocal scatters a global vector into local coefficients
func (m *AssemblyMap) GlobalToLocal(global, local []float64) {
	m.checkLen("global", len(global), m.numGlobalCoeffs)
	m.checkLen("local", len(local), m.numLocalCoeffs)
	for i, g := range m.l2g {
		local[i] = m.sign(m.l2gSign, i) * global[g]
	}
}

// Assemble sums local coefficients into a global vector
func (m *AssemblyMap) Assemble(local, global []float64) {
	m.checkLen("local", len(local), m.numLocalCoeffs)
	m.checkLen("global", len(global), m.numGlobalCoeffs)
	for i := range global {
		global[i] = 0
	}
	for i, g := range m.l2g {
		global[g] += m.sign(m.l2gSign, i) * local[i]
	}
}

// GlobalToLocalBnd scatters a global boundary vector into local boundary
// coefficients
func (m *AssemblyMap) GlobalToLocalBnd(global, local []float64) {
	m.checkLen("global", len(global), m.numGlobalBndCoeffs)
	m.checkLen("local", len(local), m.numLocalBndCoeffs)
	for i, g := range m.l2gBnd {
		local[i] = m.sign(m.l2gBndSign, i) * global[g]
	}
}

// AssembleBnd sums local boundary coefficients into a global boundary
// vector
func (m *AssemblyMap) AssembleBnd(local, global []float64) {
	m.checkLen("local", len(local), m.numLocalBndCoeffs)
	m.checkLen("global", len(global), m.numGlobalBndCoeffs)
	for i := range global {
		global[i] = 0
	}
	for i, g := range m.l2gBnd {
		global[g] += m.sign(m.l2gBndSign, i) * local[i]
	}
}

// UniversalAssemble sums a global vector over every rank holding each
// coefficient. It is collective.
func (m *AssemblyMap) UniversalAssemble(global []float64) {
	m.checkLen("global", len(global), m.numGlobalCoeffs)
	m.gsFull.Gather(global, comm.ReduceSum)
}

// UniversalAssembleBnd sums a global boundary vector over every rank
// holding each coefficient. It is collective.
func (m *AssemblyMap) UniversalAssembleBnd(global []float64) {
	m.checkLen("global boundary", len(global), m.numGlobalBndCoeffs)
	m.gsBnd.Gather(global, comm.ReduceSum)
}

func (m *AssemblyMap) checkLen(what string, got, want int) {
	if got != want {
		panic(fmt.Sprintf("assemblymap: %s vector has %d entries, want %d", what, got, want))
	}
}
