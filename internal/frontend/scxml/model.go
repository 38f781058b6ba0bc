package scxml

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/frontend/bt"
	"github.com/keb77/scan/internal/frontend/types"
	"github.com/keb77/scan/internal/frontend/xmlast"
)

// Moc names a process's model-of-computation, the fsm/bt distinction
// exposed through the <process moc="..."> attribute.
type Moc string

const (
	MocFsm Moc = "fsm"
	MocBt  Moc = "bt"
)

// ProcessRef is one <process id moc path> entry of a <processList>.
type ProcessRef struct {
	ID   string
	Moc  Moc
	Path string
}

// Model is a fully parsed <specification><model>...</model></specification>
// document: a custom-type table plus the ordered list of process
// references it names. Loading the referenced SCXML/BT files themselves
// is a separate step (Build), so a Model can be inspected (e.g. for a
// linter) without loading its processes.
type Model struct {
	Types    types.Table
	Processes []ProcessRef
}

// ParseModel parses the outer Convince-style container: <specification>
// holding <model> (itself holding an optional <types path> and a
// required <processList>), with an optional, ignored <properties>
// sibling — SCAN's core never evaluates properties ("the
// property engine is outside the core").
//
// dir resolves the <types path> attribute (relative to whatever
// directory the document itself was loaded from) and performs the actual
// read, so callers can source documents from disk, an embed.FS, or
// anything else satisfying fs.FS. <process path> attributes are only
// recorded here; Build opens them.
func ParseModel(r io.Reader, dir fs.FS) (*Model, error) {
	root, err := xmlast.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("scxml: %w", err)
	}
	if root.Start.Name.Local != "specification" {
		return nil, fmt.Errorf("scxml: expected root element <specification>, got <%s>", root.Start.Name.Local)
	}

	models := root.ChildrenNamed("model")
	if len(models) != 1 {
		return nil, fmt.Errorf("scxml: <specification> must declare exactly one <model>, found %d", len(models))
	}
	modelEl := models[0]

	m := &Model{}

	if typesEls := modelEl.ChildrenNamed("types"); len(typesEls) > 0 {
		if len(typesEls) > 1 {
			return nil, fmt.Errorf("scxml: <model> declares more than one <types>")
		}
		path, ok := typesEls[0].Start.Get("path")
		if !ok {
			return nil, fmt.Errorf("scxml: <types> missing required attribute \"path\"")
		}
		f, err := dir.Open(path)
		if err != nil {
			return nil, fmt.Errorf("scxml: opening types file %q: %w", path, err)
		}
		defer f.Close()
		table, err := types.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("scxml: types file %q: %w", path, err)
		}
		m.Types = table
	}

	lists := modelEl.ChildrenNamed("processList")
	if len(lists) != 1 {
		return nil, fmt.Errorf("scxml: <model> must declare exactly one <processList>, found %d", len(lists))
	}

	seen := make(map[string]bool)
	for _, p := range lists[0].ChildrenNamed("process") {
		id, ok := p.Start.Get("id")
		if !ok {
			return nil, fmt.Errorf("scxml: <process> missing required attribute \"id\"")
		}
		if seen[id] {
			return nil, fmt.Errorf("scxml: process %q already declared", id)
		}
		seen[id] = true

		mocAttr, ok := p.Start.Get("moc")
		if !ok {
			return nil, fmt.Errorf("scxml: <process id=%q> missing required attribute \"moc\"", id)
		}
		moc := Moc(mocAttr)
		if moc != MocFsm && moc != MocBt {
			return nil, fmt.Errorf("scxml: <process id=%q> has unknown moc %q (want \"fsm\" or \"bt\")", id, mocAttr)
		}

		path, ok := p.Start.Get("path")
		if !ok {
			return nil, fmt.Errorf("scxml: <process id=%q> missing required attribute \"path\"", id)
		}

		m.Processes = append(m.Processes, ProcessRef{ID: id, Moc: moc, Path: path})
	}

	return m, nil
}

// Build loads and lowers every process m names, registering all of them
// on one shared *cs.Builder with one shared scxml.EventChannels registry
// and one shared bt.Channels registry, so every process's contribution
// accumulates onto a single ChannelSystem. It returns the built
// *cs.ChannelSystem along with the PgID each process id was assigned,
// in Processes order.
func Build(m *Model, dir fs.FS) (*cs.ChannelSystem, map[string]cs.PgID, error) {
	csb := cs.NewBuilder()
	events := NewEventChannels()
	ticks := bt.NewChannels()

	ids := make(map[string]cs.PgID, len(m.Processes))
	for _, p := range m.Processes {
		f, err := dir.Open(p.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("scxml: opening process %q at %q: %w", p.ID, p.Path, err)
		}

		var pgID cs.PgID
		switch p.Moc {
		case MocFsm:
			fsm, err := ParseScxml(f)
			if err == nil {
				pgID, err = LowerWithTypes(fsm, csb, events, m.Types)
			}
			f.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("scxml: process %q: %w", p.ID, err)
			}
		case MocBt:
			tree, err := bt.ParseBt(f)
			if err == nil {
				pgID, err = bt.LowerBt(tree, csb, ticks)
			}
			f.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("scxml: process %q: %w", p.ID, err)
			}
		}
		ids[p.ID] = pgID
	}

	system, err := csb.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("scxml: %w", err)
	}
	return system, ids, nil
}
