// Package pg implements a Program Graph: a location/transition automaton
// over typed variables, guarded by Expression predicates and stepped by
// named, effect-carrying actions.
//
// The builder is a fluent API: AddEffect, AddTransition and SetInitial
// return the builder, and a terminal Build validates and freezes. A Program Graph has
// no successor chaining between builder calls, only a flat
// location/transition table, so there is no pipeline-style Then()
// equivalent, only Build.
package pg

import (
	"errors"
	"fmt"

	"github.com/keb77/scan/internal/compile"
	exprpkg "github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/ordered"
	"github.com/keb77/scan/internal/value"
)

// LocationID identifies a location within a single Program Graph. It is
// only meaningful relative to the ProgramGraph that minted it.
type LocationID int

// VarID identifies a variable within a single Program Graph.
type VarID int

// ActionID identifies a named action (an ordered list of effects) within
// a single Program Graph.
type ActionID int

// ErrorKind classifies why a Builder.Build or Step call failed.
type ErrorKind int

const (
	// TypeMismatch marks an effect or guard whose Expression type does
	// not match what the declaration requires.
	TypeMismatch ErrorKind = iota
	// UnknownVariable marks an Expression referencing a variable id this
	// Program Graph never declared.
	UnknownVariable
	// NotEnabled marks a Step call naming a transition that is not
	// currently enabled from the configuration's location.
	NotEnabled
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case UnknownVariable:
		return "unknown variable"
	case NotEnabled:
		return "transition not enabled"
	default:
		return "program graph error"
	}
}

// Error is the error type Build and Step return.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is a *Error of the given kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

type rawEffect struct {
	v VarID
	e exprpkg.Expr[VarID]
}

type rawTransition struct {
	from  LocationID
	act   ActionID
	guard exprpkg.Expr[VarID]
	to    LocationID
}

// Builder accumulates locations, variables, actions and transitions for a
// single Program Graph. It validates nothing until Build is called.
type Builder struct {
	nextLoc LocationID
	nextVar VarID
	nextAct ActionID

	varTypes *ordered.LinkedMap[VarID, value.Type]
	varInit  *ordered.LinkedMap[VarID, value.Val]

	hasInitial bool
	initial    LocationID

	effects     map[ActionID][]rawEffect
	transitions []rawTransition
}

// NewBuilder creates an empty Program Graph builder.
func NewBuilder() *Builder {
	return &Builder{
		varTypes: ordered.NewLinkedMap[VarID, value.Type](),
		varInit:  ordered.NewLinkedMap[VarID, value.Val](),
		effects:  make(map[ActionID][]rawEffect),
	}
}

// NewLocation allocates a fresh location.
func (b *Builder) NewLocation() LocationID {
	id := b.nextLoc
	b.nextLoc++
	return id
}

// NewVar declares a variable of type t, initialized to value.DefaultOf(t)
// unless NewVarWithInitial is used instead.
func (b *Builder) NewVar(t value.Type) VarID {
	id := b.nextVar
	b.nextVar++
	b.varTypes.Put(id, t)
	b.varInit.Put(id, value.DefaultOf(t))
	return id
}

// NewVarWithInitial declares a variable of type t with an explicit
// initial value overriding the type default ("initial
// value is the type default unless overridden").
func (b *Builder) NewVarWithInitial(t value.Type, init value.Val) (VarID, error) {
	if !value.TypeOf(init).Equal(t) {
		return 0, newErr(TypeMismatch, "initial value type %s does not match declared type %s", value.TypeOf(init), t)
	}
	id := b.nextVar
	b.nextVar++
	b.varTypes.Put(id, t)
	b.varInit.Put(id, init)
	return id, nil
}

// NewAction allocates a fresh, initially effect-less action.
func (b *Builder) NewAction() ActionID {
	id := b.nextAct
	b.nextAct++
	return id
}

// AddEffect appends an assignment v := e to action's effect list.
// Effects within one action run left-to-right at Step time.
func (b *Builder) AddEffect(action ActionID, v VarID, e exprpkg.Expr[VarID]) *Builder {
	b.effects[action] = append(b.effects[action], rawEffect{v: v, e: e})
	return b
}

// AddTransition declares a guarded move from one location to another via
// action. Transitions are kept in the order they were added; that order
// is the one Enabled reports.
func (b *Builder) AddTransition(from LocationID, action ActionID, guard exprpkg.Expr[VarID], to LocationID) *Builder {
	b.transitions = append(b.transitions, rawTransition{from: from, act: action, guard: guard, to: to})
	return b
}

// SetInitial designates the Program Graph's single initial location.
func (b *Builder) SetInitial(loc LocationID) *Builder {
	b.hasInitial = true
	b.initial = loc
	return b
}

// resolver builds an expr.Resolver backed by this builder's declared
// variable types, for use during Build's type/context checking pass.
func (b *Builder) resolver() exprpkg.Resolver[VarID] {
	return func(v VarID) (value.Type, bool) { return b.varTypes.Get(v) }
}

// Build validates every effect and guard (type-checks and
// context-checks against the declared variables) and, if all pass,
// compiles them and freezes an immutable *ProgramGraph.
func (b *Builder) Build() (*ProgramGraph, error) {
	if !b.hasInitial {
		return nil, newErr(TypeMismatch, "no initial location set")
	}

	resolve := b.resolver()

	compiledEffects := make(map[ActionID][]CompiledEffect, len(b.effects))
	for action, raws := range b.effects {
		compiled := make([]CompiledEffect, len(raws))
		for i, re := range raws {
			declared, ok := b.varTypes.Get(re.v)
			if !ok {
				return nil, newErr(UnknownVariable, "effect assigns to undeclared variable %d", re.v)
			}
			actual, err := exprpkg.TypeOf(re.e)
			if err != nil {
				return nil, err
			}
			if !actual.Equal(declared) {
				return nil, newErr(TypeMismatch, "effect on var %d: expression type %s does not match declared type %s", re.v, actual, declared)
			}
			if err := exprpkg.Context(re.e, resolve); err != nil {
				if exprpkg.IsTypeError(err, exprpkg.UnknownVar) {
					return nil, newErr(UnknownVariable, "effect on var %d: %v", re.v, err)
				}
				return nil, err
			}
			compiled[i] = CompiledEffect{Var: re.v, Eval: compile.Compile(re.e)}
		}
		compiledEffects[action] = compiled
	}

	transitionsByLoc := make(map[LocationID][]CompiledTransition)
	for _, rt := range b.transitions {
		guardType, err := exprpkg.TypeOf(rt.guard)
		if err != nil {
			return nil, err
		}
		if guardType.Kind() != value.Bool {
			return nil, newErr(TypeMismatch, "guard on transition from location %d has type %s, want Bool", rt.from, guardType)
		}
		if err := exprpkg.Context(rt.guard, resolve); err != nil {
			if exprpkg.IsTypeError(err, exprpkg.UnknownVar) {
				return nil, newErr(UnknownVariable, "guard on transition from location %d: %v", rt.from, err)
			}
			return nil, err
		}
		transitionsByLoc[rt.from] = append(transitionsByLoc[rt.from], CompiledTransition{
			Action: rt.act,
			Guard:  compile.Compile(rt.guard),
			To:     rt.to,
		})
	}

	return &ProgramGraph{
		initial:          b.initial,
		varTypes:         b.varTypes.Clone(),
		varInit:          b.varInit.Clone(),
		transitionsByLoc: transitionsByLoc,
		effectsByAction:  compiledEffects,
		numLocations:     int(b.nextLoc),
	}, nil
}

// CompiledEffect is a validated, compiled v := e assignment.
type CompiledEffect struct {
	Var  VarID
	Eval compile.Evaluator[VarID]
}

// CompiledTransition is a validated, compiled guarded move out of one
// location.
type CompiledTransition struct {
	Action ActionID
	Guard  compile.Evaluator[VarID]
	To     LocationID
}

// ProgramGraph is an immutable, validated Program Graph.
// Its shape (locations, variables, actions, transitions) never changes
// after Build; only a Configuration's valuation and current location
// change as it is stepped.
type ProgramGraph struct {
	initial LocationID

	varTypes *ordered.LinkedMap[VarID, value.Type]
	varInit  *ordered.LinkedMap[VarID, value.Val]

	transitionsByLoc map[LocationID][]CompiledTransition
	effectsByAction  map[ActionID][]CompiledEffect

	numLocations int
}

// Configuration is a Program Graph's current location plus variable
// valuation.
type Configuration struct {
	Loc  LocationID
	Vars *ordered.LinkedMap[VarID, value.Val]
}

// clone returns a deep-enough copy of cfg: a new Vars map so in-progress
// effect application never mutates a caller's configuration in place.
func (cfg Configuration) clone() Configuration {
	return Configuration{Loc: cfg.Loc, Vars: cfg.Vars.Clone()}
}

// InitialConfiguration returns the Program Graph's starting
// configuration: the initial location and every variable at its default
// (or overridden) initial value.
func (g *ProgramGraph) InitialConfiguration() Configuration {
	return Configuration{Loc: g.initial, Vars: g.varInit.Clone()}
}

// VarType reports the declared type of variable v.
func (g *ProgramGraph) VarType(v VarID) (value.Type, bool) {
	return g.varTypes.Get(v)
}

// NumLocations reports how many locations this Program Graph declares.
func (g *ProgramGraph) NumLocations() int { return g.numLocations }

// Move is one enabled transition reported by Enabled: the action to take
// and the location it leads to.
type Move struct {
	Action ActionID
	To     LocationID
}

func env(cfg Configuration) compile.Env[VarID] {
	return func(v VarID) value.Val {
		val, _ := cfg.Vars.Get(v)
		return val
	}
}

// Enabled reports every (action, to-location) pair whose guard
// evaluates true in cfg, in the order the underlying transitions were
// added to the Program Graph.
func (g *ProgramGraph) Enabled(cfg Configuration) ([]Move, error) {
	candidates := g.transitionsByLoc[cfg.Loc]
	if len(candidates) == 0 {
		return nil, nil
	}
	e := env(cfg)
	moves := make([]Move, 0, len(candidates))
	for _, t := range candidates {
		v, err := t.Guard(e)
		if err != nil {
			return nil, err
		}
		if v.Kind() != value.Bool {
			return nil, newErr(TypeMismatch, "guard evaluated to non-Bool value")
		}
		if v.Bool() {
			moves = append(moves, Move{Action: t.Action, To: t.To})
		}
	}
	return moves, nil
}

// Step applies the transition (action, to) from cfg. The move must be
// present in Enabled(cfg); otherwise Step returns a NotEnabled error.
// Effects run left-to-right, each one observing every earlier effect's
// write within the same step.
func (g *ProgramGraph) Step(cfg Configuration, action ActionID, to LocationID) (Configuration, error) {
	moves, err := g.Enabled(cfg)
	if err != nil {
		return Configuration{}, err
	}
	found := false
	for _, m := range moves {
		if m.Action == action && m.To == to {
			found = true
			break
		}
	}
	if !found {
		return Configuration{}, newErr(NotEnabled, "action %d to location %d is not enabled from location %d", action, to, cfg.Loc)
	}

	next := cfg.clone()
	e := env(next)
	for _, eff := range g.effectsByAction[action] {
		v, err := eff.Eval(e)
		if err != nil {
			return Configuration{}, err
		}
		next.Vars.Put(eff.Var, v)
	}
	next.Loc = to
	return next, nil
}
