// Package jani parses the JANI model-interchange JSON format — a
// variant parsed into the same internal model as SCXML, by a separate
// front-end — and lowers it to a *cs.ChannelSystem, composing
// one Program Graph per automaton and binding cross-automaton
// synchronization vectors to rendezvous channels.
//
// The concrete struct shapes below cover the public JANI format's core
// (non-probabilistic, non-real-time) subset: variables, a flat list of
// automata with locations/edges/destinations, and a system composition
// with synchronisation vectors. Probabilistic branching is rejected
// outright rather than silently dropped or mis-lowered: Parse returns an
// error for an edge with more than one destination or with a destination
// probability other than the literal 1. The model's "type" field is
// decoded but not checked.
package jani

import "encoding/json"

// Model is a parsed JANI document's model-relevant fields. Unrecognized
// top-level fields (e.g. "jani-version", "metadata", "properties") are
// ignored: the property engine is outside this core, and the format
// version/metadata carry nothing semantic to lower.
type Model struct {
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Actions   []Action     `json:"actions"`
	Variables []Variable   `json:"variables"`
	Automata  []Automaton  `json:"automata"`
	System    System       `json:"system"`
}

// Action is a named synchronization label an edge may reference.
type Action struct {
	Name string `json:"name"`
}

// Variable is one JANI variable declaration. Type is kept raw since it
// is either a bare string ("bool"/"int"/"real") or a bounded-type
// object; resolveType interprets it.
type Variable struct {
	Name         string          `json:"name"`
	Type         json.RawMessage `json:"type"`
	InitialValue json.RawMessage `json:"initial-value"`
}

// Automaton is one JANI automaton: a named set of locations, one
// initial location, optional local variables, and its edges.
type Automaton struct {
	Name             string      `json:"name"`
	Locations        []Location  `json:"locations"`
	InitialLocations []string    `json:"initial-locations"`
	Variables        []Variable  `json:"variables"`
	Edges            []Edge      `json:"edges"`
}

// Location is one automaton location. JANI lets a location carry
// "transient-values"; SCAN has no such concept so it is not modeled.
type Location struct {
	Name string `json:"name"`
}

// Edge is one automaton edge: a guarded move out of Location, optionally
// labeled with a synchronization Action, to one of Destinations.
// Destinations with more than one entry model a probabilistic branch;
// SCAN rejects any edge whose destinations carry a Probability other
// than the implicit 1 (see parse.go).
type Edge struct {
	Location     string          `json:"location"`
	Action       *string         `json:"action"`
	Guard        *Guard          `json:"guard"`
	Destinations []Destination   `json:"destinations"`
}

// Guard wraps an edge's boolean expression.
type Guard struct {
	Exp json.RawMessage `json:"exp"`
}

// Destination is one edge destination: a target location, an optional
// probability expression, and the assignments applied on that branch.
type Destination struct {
	Location    string          `json:"location"`
	Probability *Probability    `json:"probability"`
	Assignments []Assignment    `json:"assignments"`
}

// Probability wraps a destination's probability-weight expression.
type Probability struct {
	Exp json.RawMessage `json:"exp"`
}

// Assignment is one "ref := value" effect applied when a destination is
// taken.
type Assignment struct {
	Ref   string          `json:"ref"`
	Value json.RawMessage `json:"value"`
}

// System is the model's composition: which automata participate, and
// how their local actions synchronize into global moves.
type System struct {
	Elements []SystemElement `json:"elements"`
	Syncs    []Sync          `json:"syncs"`
}

// SystemElement names one automaton participating in the composition.
type SystemElement struct {
	Automaton string `json:"automaton"`
}

// Sync is one synchronisation vector: Synchronise has one entry per
// SystemElement (in the same order), naming the local action that
// element contributes to this vector (null if it does not participate),
// and Result names the resulting global action.
type Sync struct {
	Synchronise []*string `json:"synchronise"`
	Result      *string   `json:"result"`
}
