// Package sim is SCAN's driver: it loads a model file into a
// *cs.ChannelSystem and drives it (the validate/execute/verify
// subcommands). It owns no CS semantics of its own — every move
// is chosen from cs.PossibleTransitions and applied with cs.Transition —
// it only decides *which* enabled move to take and how many independent
// configurations to run concurrently.
package sim

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/frontend/bt"
	"github.com/keb77/scan/internal/frontend/jani"
	"github.com/keb77/scan/internal/frontend/scxml"
	"github.com/keb77/scan/internal/frontend/xmlast"
)

// Phase names which stage of loading an error came from, so the CLI can
// map it to the exit-code discipline (1 parse, 2 builder/type).
type Phase int

const (
	PhaseParse Phase = iota
	PhaseBuild
)

func (p Phase) String() string {
	if p == PhaseBuild {
		return "build"
	}
	return "parse"
}

// LoadError wraps a load failure with the phase it occurred in.
type LoadError struct {
	Phase Phase
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s error: %v", e.Phase, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Model is a loaded, built Channel System plus the human-readable names
// its Program Graphs were declared under in the source model — enough
// context to name the offending PG/variable/action in a diagnostic.
type Model struct {
	System *cs.ChannelSystem
	Names  map[cs.PgID]string
}

// Load reads the model file at path, auto-detecting its format (the
// SCXML/Convince variant or JANI) and builds its Channel System.
//
// Detection is by content, not extension: a JANI document is a JSON
// object, so Load sniffs the first non-whitespace byte. The grammar
// itself is unambiguous (XML documents cannot start with '{'), so
// sniffing is simpler and more robust than trusting a file extension a
// caller could rename.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Phase: PhaseParse, Err: fmt.Errorf("reading model file: %w", err)}
	}

	if looksLikeJANI(raw) {
		return loadJANI(raw)
	}

	root, err := xmlast.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &LoadError{Phase: PhaseParse, Err: err}
	}
	switch root.Start.Name.Local {
	case "root":
		// A bare behavior-tree document: a BT is one of two things a
		// <process> may reference, but a single-process model with no
		// FSM siblings is also a reasonable standalone model file on
		// its own.
		return loadBT(bytes.NewReader(raw))
	default:
		return loadSCXML(raw, filepath.Dir(path))
	}
}

func looksLikeJANI(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func loadJANI(raw []byte) (*Model, error) {
	m, err := jani.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &LoadError{Phase: PhaseParse, Err: err}
	}

	csb := cs.NewBuilder()
	ids, err := jani.Lower(m, csb)
	if err != nil {
		return nil, &LoadError{Phase: PhaseBuild, Err: err}
	}
	system, err := csb.Build()
	if err != nil {
		return nil, &LoadError{Phase: PhaseBuild, Err: err}
	}

	names := make(map[cs.PgID]string, len(ids))
	for name, id := range ids {
		names[id] = name
	}
	return &Model{System: system, Names: names}, nil
}

func loadSCXML(raw []byte, dir string) (*Model, error) {
	m, err := scxml.ParseModel(bytes.NewReader(raw), os.DirFS(dir))
	if err != nil {
		return nil, &LoadError{Phase: PhaseParse, Err: err}
	}

	system, ids, err := scxml.Build(m, os.DirFS(dir))
	if err != nil {
		return nil, &LoadError{Phase: PhaseBuild, Err: err}
	}

	names := make(map[cs.PgID]string, len(ids))
	for name, id := range ids {
		names[id] = name
	}
	return &Model{System: system, Names: names}, nil
}

// loadBT builds a standalone BT model file: the root element is
// <root>, not <specification>, so Load routes here directly instead of
// through the Convince-style outer container.
func loadBT(r io.Reader) (*Model, error) {
	tree, err := bt.ParseBt(r)
	if err != nil {
		return nil, &LoadError{Phase: PhaseParse, Err: err}
	}
	csb := cs.NewBuilder()
	ticks := bt.NewChannels()
	id, err := bt.LowerBt(tree, csb, ticks)
	if err != nil {
		return nil, &LoadError{Phase: PhaseBuild, Err: err}
	}
	system, err := csb.Build()
	if err != nil {
		return nil, &LoadError{Phase: PhaseBuild, Err: err}
	}
	return &Model{System: system, Names: map[cs.PgID]string{id: "bt"}}, nil
}
