package assemblymap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SuPenghui/nektar/reorder"
)

var (
	// ErrUnknownSolnType is returned for a global system solution type
	// without a reordering policy
	ErrUnknownSolnType = errors.New("unknown global system solution type")

	// ErrSingularOverride is returned when the singular pin override names
	// an element or vertex that cannot be used
	ErrSingularOverride = errors.New("invalid singular system override")

	// ErrPeriodicRedefined is returned when a periodic edge is numbered
	// twice
	ErrPeriodicRedefined = errors.New("periodic boundary edge specified before")
)

// GlobalSysSoln selects how the global linear system is solved, which in
// turn selects how the degrees of freedom are ordered
type GlobalSysSoln uint8

const (
	NoSolnType GlobalSysSoln = iota
	DirectFullMatrix
	DirectStaticCond
	DirectMultiLevelStaticCond
	IterativeFull
	IterativeStaticCond
	IterativeMultiLevelStaticCond
	XxtFullMatrix
	XxtStaticCond
	XxtMultiLevelStaticCond
	PETScFullMatrix
	PETScStaticCond
	PETScMultiLevelStaticCond
)

var solnNames = [...]string{
	NoSolnType:                    "NoSolnType",
	DirectFullMatrix:              "DirectFull",
	DirectStaticCond:              "DirectStaticCond",
	DirectMultiLevelStaticCond:    "DirectMultiLevelStaticCond",
	IterativeFull:                 "IterativeFull",
	IterativeStaticCond:           "IterativeStaticCond",
	IterativeMultiLevelStaticCond: "IterativeMultiLevelStaticCond",
	XxtFullMatrix:                 "XxtFull",
	XxtStaticCond:                 "XxtStaticCond",
	XxtMultiLevelStaticCond:       "XxtMultiLevelStaticCond",
	PETScFullMatrix:               "PETScFull",
	PETScStaticCond:               "PETScStaticCond",
	PETScMultiLevelStaticCond:     "PETScMultiLevelStaticCond",
}

func (s GlobalSysSoln) String() string {
	if int(s) < len(solnNames) {
		return solnNames[s]
	}
	return fmt.Sprintf("GlobalSysSoln(%d)", uint8(s))
}

// ParseGlobalSysSoln looks a solution type up by name
func ParseGlobalSysSoln(name string) (GlobalSysSoln, error) {
	for s, n := range solnNames {
		if n == name && GlobalSysSoln(s) != NoSolnType {
			return GlobalSysSoln(s), nil
		}
	}
	return NoSolnType, fmt.Errorf("%q: %w", name, ErrUnknownSolnType)
}

// IsMultiLevel reports whether s condenses the boundary system recursively
func (s GlobalSysSoln) IsMultiLevel() bool {
	switch s {
	case DirectMultiLevelStaticCond, IterativeMultiLevelStaticCond,
		XxtMultiLevelStaticCond, PETScMultiLevelStaticCond:
		return true
	}
	return false
}

// StrategyFor returns the reordering used for solution type s. protected
// vertices are kept in the top separator of a nested bisection.
func StrategyFor(s GlobalSysSoln, mdswitch int, protected []int) (reorder.Strategy, error) {
	switch s {
	case DirectFullMatrix, IterativeFull, IterativeStaticCond,
		XxtFullMatrix, XxtStaticCond, PETScFullMatrix, PETScStaticCond:
		return reorder.Identity{}, nil
	case DirectStaticCond:
		return reorder.CuthillMcKee{}, nil
	case DirectMultiLevelStaticCond, IterativeMultiLevelStaticCond,
		XxtMultiLevelStaticCond, PETScMultiLevelStaticCond:
		return reorder.MultiLevelBisection{MDSwitch: mdswitch, Protected: protected}, nil
	}
	return nil, fmt.Errorf("no reordering for %v: %w", s, ErrUnknownSolnType)
}

// Options configure the construction of an assembly map
type Options struct {
	SolnType GlobalSysSoln

	// Singular system pin overrides, at most one is used
	SingularElement *int // local element index
	SingularVertex  *int // mesh vertex id

	MaxStaticCondLevel int
	MDSwitch           int // largest sub-domain left undivided by bisection
	DoInteriorMap      bool

	Logger *slog.Logger
}

// DefaultOptions returns the settings used when a session leaves them out
func DefaultOptions() Options {
	return Options{
		SolnType:           DirectStaticCond,
		MaxStaticCondLevel: 100,
		MDSwitch:           10,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o Options) mdswitch() int {
	if o.MDSwitch <= 0 {
		return 10
	}
	return o.MDSwitch
}
