// Package config reads the solver session file that selects how the
// degrees of freedom of a field are numbered.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/SuPenghui/nektar/assemblymap"
)

// ErrInvalidSession is returned for a session file that parses but holds
// values no assembly map accepts
var ErrInvalidSession = errors.New("invalid session")

// Session is a decoded session file. Blocks left out of the file keep
// their defaults.
type Session struct {
	Solver   *SolverBlock   `hcl:"solver,block"`
	Singular *SingularBlock `hcl:"singular,block"`
	Logging  *LoggingBlock  `hcl:"logging,block"`
}

// SolverBlock selects the global system solution type and the static
// condensation levels it may use
type SolverBlock struct {
	GlobalSysSoln      *string `hcl:"global_sys_soln,optional"`
	MaxStaticCondLevel *int    `hcl:"max_static_cond_level,optional"`
	MDSwitch           *int    `hcl:"md_switch,optional"`
	InteriorMap        *bool   `hcl:"interior_map,optional"`
}

// SingularBlock overrides the vertex pinned in a singular system. Only one
// of the two attributes may be set.
type SingularBlock struct {
	Element *int `hcl:"element,optional"`
	Vertex  *int `hcl:"vertex,optional"`
}

// LoggingBlock sets the level (debug, info, warn, error) and format (text
// or json) of the session logger
type LoggingBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Load parses the session file at path. Expressions may refer to nproc,
// the number of ranks the session runs on.
func Load(path string, nproc int) (*Session, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, diags)
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"nproc": cty.NumberIntVal(int64(nproc)),
		},
	}
	var s Session
	if diags := gohcl.DecodeBody(file.Body, ctx, &s); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode session file %s: %w", path, diags)
	}
	if _, err := s.Options(); err != nil {
		return nil, fmt.Errorf("session file %s: %w", path, err)
	}
	return &s, nil
}

// Options converts the session into assembly map options. The logger is
// left unset.
func (s *Session) Options() (assemblymap.Options, error) {
	opts := assemblymap.DefaultOptions()
	if sb := s.Solver; sb != nil {
		if sb.GlobalSysSoln != nil {
			soln, err := assemblymap.ParseGlobalSysSoln(*sb.GlobalSysSoln)
			if err != nil {
				return opts, fmt.Errorf("%w: %w", ErrInvalidSession, err)
			}
			opts.SolnType = soln
		}
		if sb.MaxStaticCondLevel != nil {
			if *sb.MaxStaticCondLevel < 0 {
				return opts, fmt.Errorf("%w: max_static_cond_level %d is negative",
					ErrInvalidSession, *sb.MaxStaticCondLevel)
			}
			opts.MaxStaticCondLevel = *sb.MaxStaticCondLevel
		}
		if sb.MDSwitch != nil {
			if *sb.MDSwitch < 1 {
				return opts, fmt.Errorf("%w: md_switch %d must be positive", ErrInvalidSession, *sb.MDSwitch)
			}
			opts.MDSwitch = *sb.MDSwitch
		}
		if sb.InteriorMap != nil {
			opts.DoInteriorMap = *sb.InteriorMap
		}
	}
	if sg := s.Singular; sg != nil {
		if sg.Element != nil && sg.Vertex != nil {
			return opts, fmt.Errorf("%w: singular sets both element and vertex", ErrInvalidSession)
		}
		opts.SingularElement = sg.Element
		opts.SingularVertex = sg.Vertex
	}
	return opts, nil
}

// Logger builds the logger the logging block asks for, writing to w
func (s *Session) Logger(w io.Writer) *slog.Logger {
	if s.Logging == nil {
		return NewLogger("", "", w)
	}
	return NewLogger(s.Logging.Level, s.Logging.Format, w)
}

// NewLogger creates a logger at the named level ("debug", "info", "warn",
// "error", default info) with a text or "json" handler
func NewLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}
