package scxml

import (
	"fmt"

	"github.com/keb77/scan/internal/compile"
	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/frontend/exprlang"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// EventChannels is the event-name-to-channel registry shared across every
// process Lower compiles into the same *cs.Builder, so that a <raise> or
// <send> in one process and a <transition event> in another agree on the
// same cs.ChannelID (the event routing has no channel concept
// of its own; CS channels are the closest point-to-point primitive the
// Channel System offers, so every named event becomes exactly one bounded
// channel of depth 1 shared by whoever raises, sends or receives it).
//
// A bounded, non-zero-capacity channel is used rather than a rendezvous
// one even for immediate (non-delayed) events: PossibleTransitions only
// consults comm.delay on the bounded-channel path (cs/transitions.go), so
// a <send delay="..."> needs a bounded channel regardless, and giving
// every event the same channel kind keeps raise/send/receive uniform. It
// also sidesteps a Send and Receive of the *same* process ever needing to
// pair as a Rendezvous move, which the channel-system's pairing logic
// does not special-case against self-pairing.
type EventChannels struct {
	byName map[string]eventChannel
}

type eventChannel struct {
	id     cs.ChannelID
	typ    value.Type
}

// NewEventChannels creates an empty, shared event registry.
func NewEventChannels() *EventChannels {
	return &EventChannels{byName: make(map[string]eventChannel)}
}

// channelFor returns the channel for the named event, creating it with
// carried type typ the first time the name is seen. A later use with a
// different type is a model error: two processes disagree on what the
// event carries.
func (ec *EventChannels) channelFor(csb *cs.Builder, name string, typ value.Type) (cs.ChannelID, error) {
	if existing, ok := ec.byName[name]; ok {
		if !existing.typ.Equal(typ) {
			return 0, fmt.Errorf("scxml: event %q carries %s here but %s elsewhere", name, typ, existing.typ)
		}
		return existing.id, nil
	}
	id := csb.NewChannel(typ, 1)
	ec.byName[name] = eventChannel{id: id, typ: typ}
	return id, nil
}

// pendingComm is a channel binding that can only be finished once the
// Program Graph has been built and registered with the Channel System
// builder (its PgID is not known while the pg.Builder is still open).
type pendingComm struct {
	action  pg.ActionID
	isSend  bool
	event   string
	payload expr.Expr[pg.VarID] // set for sends
	delay   expr.Expr[pg.VarID] // set for delayed sends
	target  pg.VarID            // set for receives
}

// Lower compiles fsm into a Program Graph and registers it with csb,
// binding every raise/send/event-gated transition to events' shared
// channels. It returns the PgID the Channel System now knows this
// process by. It resolves only the three primitive OMG type names; a
// model with a <types path=".."/> custom-type table should call
// LowerWithTypes instead.
func Lower(fsm *Scxml, csb *cs.Builder, events *EventChannels) (cs.PgID, error) {
	return LowerWithTypes(fsm, csb, events, nil)
}

// LowerWithTypes is Lower, additionally resolving a <data>/<param> type
// attribute through named (a name -> Expression type table loaded from
// the model's <types path=".."/> file, the "custom types"
// paragraph) when it is not itself one of the three primitive names.
func LowerWithTypes(fsm *Scxml, csb *cs.Builder, events *EventChannels, named map[string]value.Type) (cs.PgID, error) {
	b := pg.NewBuilder()

	declared := make(map[string]value.Type, len(fsm.Datamodel))
	varIDs := make(map[string]pg.VarID, len(fsm.Datamodel))
	initVals := make(map[string]value.Val, len(fsm.Datamodel))

	for _, d := range fsm.Datamodel {
		t, err := parseOmgType(d.OmgType, named)
		if err != nil {
			return 0, fmt.Errorf("scxml: data %q: %w", d.ID, err)
		}

		init := value.DefaultOf(t)
		if d.Expr != "" {
			tree, err := exprlang.Parse(d.Expr)
			if err != nil {
				return 0, fmt.Errorf("scxml: data %q: %w", d.ID, err)
			}
			resolved, err := exprlang.ResolveVars(tree, declared)
			if err != nil {
				return 0, fmt.Errorf("scxml: data %q: %w", d.ID, err)
			}
			ev := compile.Compile(resolved)
			init, err = ev(func(name string) value.Val { return initVals[name] })
			if err != nil {
				return 0, fmt.Errorf("scxml: data %q: %w", d.ID, err)
			}
			if !value.TypeOf(init).Equal(t) {
				return 0, fmt.Errorf("scxml: data %q: initial expression has type %s, want %s", d.ID, value.TypeOf(init), t)
			}
		}

		vid, err := b.NewVarWithInitial(t, init)
		if err != nil {
			return 0, fmt.Errorf("scxml: data %q: %w", d.ID, err)
		}
		declared[d.ID] = t
		varIDs[d.ID] = vid
		initVals[d.ID] = init
	}

	locIDs := make(map[string]pg.LocationID, len(fsm.StateOrder))
	for _, id := range fsm.StateOrder {
		locIDs[id] = b.NewLocation()
	}
	initialLoc, ok := locIDs[fsm.Initial]
	if !ok {
		return 0, fmt.Errorf("scxml: initial state %q not found", fsm.Initial)
	}
	b.SetInitial(initialLoc)

	recvSinks := make(map[string]pg.VarID)
	sinkFor := func(event string) pg.VarID {
		if v, ok := recvSinks[event]; ok {
			return v
		}
		v := b.NewVar(value.BoolType)
		recvSinks[event] = v
		return v
	}

	var pendingComms []pendingComm

	for _, stateID := range fsm.StateOrder {
		state := fsm.States[stateID]
		from := locIDs[stateID]
		for _, t := range state.Transitions {
			to, ok := locIDs[t.Target]
			if !ok {
				return 0, fmt.Errorf("scxml: state %q: transition targets undeclared state %q", stateID, t.Target)
			}
			target := fsm.States[t.Target]

			execs := make([]Executable, 0, len(state.OnExit)+len(t.Effects)+len(target.OnEntry))
			execs = append(execs, state.OnExit...)
			execs = append(execs, t.Effects...)
			execs = append(execs, target.OnEntry...)

			prefix, ifNode, suffix, err := splitExecsForIf(execs)
			if err != nil {
				return 0, fmt.Errorf("scxml: state %q: %w", stateID, err)
			}
			branches, err := buildBranches(prefix, ifNode, suffix)
			if err != nil {
				return 0, fmt.Errorf("scxml: state %q: %w", stateID, err)
			}

			var condExpr expr.Expr[string]
			if t.Cond == "" {
				condExpr = expr.Const[string]{Value: value.BoolVal(true)}
			} else {
				condExpr, err = exprlang.Parse(t.Cond)
				if err != nil {
					return 0, fmt.Errorf("scxml: state %q: transition cond: %w", stateID, err)
				}
			}
			condExpr, err = exprlang.ResolveVars(condExpr, declared)
			if err != nil {
				return 0, fmt.Errorf("scxml: state %q: transition cond: %w", stateID, err)
			}

			for _, br := range branches {
				action := b.NewAction()
				var comm *pendingComm

				for _, ex := range br.execs {
					switch v := ex.(type) {
					case Assign:
						loc, ok := varIDs[v.Location]
						if !ok {
							return 0, fmt.Errorf("scxml: state %q: assign to undeclared variable %q", stateID, v.Location)
						}
						tree, err := exprlang.Parse(v.Expr)
						if err != nil {
							return 0, fmt.Errorf("scxml: state %q: assign %q: %w", stateID, v.Location, err)
						}
						resolved, err := exprlang.ResolveVars(tree, declared)
						if err != nil {
							return 0, fmt.Errorf("scxml: state %q: assign %q: %w", stateID, v.Location, err)
						}
						pgExpr, err := toVarIDExpr(resolved, varIDs)
						if err != nil {
							return 0, fmt.Errorf("scxml: state %q: assign %q: %w", stateID, v.Location, err)
						}
						b.AddEffect(action, loc, pgExpr)

					case Raise:
						if comm != nil {
							return 0, fmt.Errorf("scxml: state %q: a transition may raise or send at most one event", stateID)
						}
						comm = &pendingComm{
							isSend:  true,
							event:   v.Event,
							payload: expr.Const[pg.VarID]{Value: value.BoolVal(true)},
						}

					case Send:
						if comm != nil {
							return 0, fmt.Errorf("scxml: state %q: a transition may raise or send at most one event", stateID)
						}
						c, err := lowerSend(v, declared, varIDs)
						if err != nil {
							return 0, fmt.Errorf("scxml: state %q: %w", stateID, err)
						}
						comm = c

					case If:
						return 0, fmt.Errorf("scxml: state %q: nested <if> is unsupported", stateID)

					default:
						return 0, fmt.Errorf("scxml: state %q: unknown executable node %T", stateID, ex)
					}
				}

				guard := condExpr
				if br.guard != nil {
					resolvedExtra, err := exprlang.ResolveVars(br.guard, declared)
					if err != nil {
						return 0, fmt.Errorf("scxml: state %q: if condition: %w", stateID, err)
					}
					guard = expr.NewAnd[string](condExpr, resolvedExtra)
				}
				pgGuard, err := toVarIDExpr(guard, varIDs)
				if err != nil {
					return 0, fmt.Errorf("scxml: state %q: guard: %w", stateID, err)
				}
				b.AddTransition(from, action, pgGuard, to)

				if t.Event != "" {
					if comm != nil {
						return 0, fmt.Errorf("scxml: state %q: a transition cannot both consume and raise/send an event", stateID)
					}
					pendingComms = append(pendingComms, pendingComm{
						action: action,
						isSend: false,
						event:  t.Event,
						target: sinkFor(t.Event),
					})
				} else if comm != nil {
					comm.action = action
					pendingComms = append(pendingComms, *comm)
				}
			}
		}
	}

	graph, err := b.Build()
	if err != nil {
		return 0, fmt.Errorf("scxml: process %q: %w", fsm.ID, err)
	}
	pgID := csb.NewProgramGraph(graph)

	for _, pc := range pendingComms {
		if pc.isSend {
			payloadType, err := expr.TypeOf(pc.payload)
			if err != nil {
				return 0, fmt.Errorf("scxml: process %q: event %q: %w", fsm.ID, pc.event, err)
			}
			ch, err := events.channelFor(csb, pc.event, payloadType)
			if err != nil {
				return 0, fmt.Errorf("scxml: process %q: %w", fsm.ID, err)
			}
			csb.BindSend(pgID, pc.action, ch, pc.payload, pc.delay)
		} else {
			ch, err := events.channelFor(csb, pc.event, value.BoolType)
			if err != nil {
				return 0, fmt.Errorf("scxml: process %q: %w", fsm.ID, err)
			}
			csb.BindReceive(pgID, pc.action, ch, pc.target)
		}
	}

	return pgID, nil
}

func lowerSend(s Send, declared map[string]value.Type, varIDs map[string]pg.VarID) (*pendingComm, error) {
	var payload expr.Expr[pg.VarID]
	var delay expr.Expr[pg.VarID]

	switch len(s.Params) {
	case 0:
		payload = expr.Const[pg.VarID]{Value: value.BoolVal(true)}
	case 1:
		p, err := lowerParamExpr(s.Params[0], declared, varIDs)
		if err != nil {
			return nil, fmt.Errorf("send %q: %w", s.Event, err)
		}
		payload = p
	default:
		elems := make([]expr.Expr[pg.VarID], len(s.Params))
		for i, p := range s.Params {
			e, err := lowerParamExpr(p, declared, varIDs)
			if err != nil {
				return nil, fmt.Errorf("send %q: %w", s.Event, err)
			}
			elems[i] = e
		}
		payload = expr.Tuple[pg.VarID]{Elems: elems}
	}

	if s.Delay != "" {
		tree, err := exprlang.Parse(s.Delay)
		if err != nil {
			return nil, fmt.Errorf("send %q: delay: %w", s.Event, err)
		}
		resolved, err := exprlang.ResolveVars(tree, declared)
		if err != nil {
			return nil, fmt.Errorf("send %q: delay: %w", s.Event, err)
		}
		d, err := toVarIDExpr(resolved, varIDs)
		if err != nil {
			return nil, fmt.Errorf("send %q: delay: %w", s.Event, err)
		}
		delay = d
	}

	return &pendingComm{isSend: true, event: s.Event, payload: payload, delay: delay}, nil
}

func lowerParamExpr(p Param, declared map[string]value.Type, varIDs map[string]pg.VarID) (expr.Expr[pg.VarID], error) {
	tree, err := exprlang.Parse(p.Expr)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", p.Name, err)
	}
	resolved, err := exprlang.ResolveVars(tree, declared)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", p.Name, err)
	}
	return toVarIDExpr(resolved, varIDs)
}

// parseOmgType maps an OMG type string (a <data>/<param>
// type attribute or the "TYPE ident:type" magic comment) onto the
// corresponding Expression type. named, if non-nil, is consulted when s
// is not itself one of the three primitive names, for a model's
// <types path=".."/> table of enumeration/structure types (see
// internal/frontend/types.ParseOmgTypes).
func parseOmgType(s string, named map[string]value.Type) (value.Type, error) {
	switch s {
	case "bool":
		return value.BoolType, nil
	case "int":
		return value.IntType, nil
	case "float":
		return value.FloatType, nil
	default:
		if named != nil {
			if t, ok := named[s]; ok {
				return t, nil
			}
		}
		return value.Type{}, fmt.Errorf("unsupported OMG type %q", s)
	}
}

// branch is one arm of an (optional) If desugared into a guarded
// Program Graph transition: guard is nil when no <if> was present, or the
// arm's own condition AND-ed with the negation of every earlier arm's
// condition, so exactly one branch's guard can hold at once (the closed
// Expression ADT has no if-then-else node, so this is done by
// construction rather than evaluation).
type branch struct {
	guard expr.Expr[string]
	execs []Executable
}

// splitExecsForIf splits a flat executable-content list into what comes
// before an <if> block, the <if> itself (nil if none is present), and
// what comes after, rejecting more than one <if> at this level (the
// scoping simplification documented on the If type).
func splitExecsForIf(execs []Executable) (prefix []Executable, ifNode *If, suffix []Executable, err error) {
	for i, ex := range execs {
		if v, ok := ex.(If); ok {
			if ifNode != nil {
				return nil, nil, nil, fmt.Errorf("at most one <if> is supported per transition")
			}
			found := v
			ifNode = &found
			prefix = execs[:i]
			continue
		}
		if ifNode != nil {
			suffix = append(suffix, ex)
		}
	}
	if ifNode == nil {
		prefix = execs
	}
	return prefix, ifNode, suffix, nil
}

func buildBranches(prefix []Executable, ifNode *If, suffix []Executable) ([]branch, error) {
	if ifNode == nil {
		all := make([]Executable, 0, len(prefix)+len(suffix))
		all = append(all, prefix...)
		all = append(all, suffix...)
		return []branch{{execs: all}}, nil
	}

	var out []branch
	var priorNegs []expr.Expr[string]
	for _, arm := range ifNode.Arms {
		var g expr.Expr[string]
		if arm.Cond != "" {
			cond, err := exprlang.Parse(arm.Cond)
			if err != nil {
				return nil, fmt.Errorf("if/elif condition: %w", err)
			}
			g = cond
		}

		conjuncts := append([]expr.Expr[string](nil), priorNegs...)
		if g != nil {
			conjuncts = append(conjuncts, g)
		}
		var guard expr.Expr[string]
		if len(conjuncts) > 0 {
			guard = expr.NewAnd[string](conjuncts...)
		}

		execs := make([]Executable, 0, len(prefix)+len(arm.Body)+len(suffix))
		execs = append(execs, prefix...)
		execs = append(execs, arm.Body...)
		execs = append(execs, suffix...)
		out = append(out, branch{guard: guard, execs: execs})

		if g != nil {
			priorNegs = append(priorNegs, expr.NewNot[string](g))
		}
	}
	return out, nil
}

// ToVarIDExpr re-targets an already ResolveVars-resolved tree from
// string-named variables onto a Program Graph's pg.VarID space. It
// mirrors exprlang.ResolveVars's shape exactly, substituting names for
// ids instead of filling in Declared types. Exported so other
// front-ends whose source expressions also resolve to string-named
// variables first (internal/frontend/jani) can reuse it instead of
// re-deriving the same 17-case switch over internal/expr's closed node
// set.
func ToVarIDExpr(e expr.Expr[string], vars map[string]pg.VarID) (expr.Expr[pg.VarID], error) {
	return toVarIDExpr(e, vars)
}

func toVarIDExpr(e expr.Expr[string], vars map[string]pg.VarID) (expr.Expr[pg.VarID], error) {
	switch n := e.(type) {
	case expr.Const[string]:
		return expr.Const[pg.VarID]{Value: n.Value}, nil

	case expr.Var[string]:
		id, ok := vars[n.Name]
		if !ok {
			return nil, fmt.Errorf("unknown variable %q", n.Name)
		}
		return expr.Var[pg.VarID]{Name: id, Declared: n.Declared}, nil

	case expr.Tuple[string]:
		elems, err := toVarIDAll(n.Elems, vars)
		if err != nil {
			return nil, err
		}
		return expr.Tuple[pg.VarID]{Elems: elems}, nil

	case expr.Component[string]:
		of, err := toVarIDExpr(n.Of, vars)
		if err != nil {
			return nil, err
		}
		return expr.NewComponent[pg.VarID](of, n.Index), nil

	case expr.And[string]:
		args, err := toVarIDAll(n.Args, vars)
		if err != nil {
			return nil, err
		}
		return expr.NewAnd[pg.VarID](args...), nil

	case expr.Or[string]:
		args, err := toVarIDAll(n.Args, vars)
		if err != nil {
			return nil, err
		}
		return expr.NewOr[pg.VarID](args...), nil

	case expr.Implies[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.Implies[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.Not[string]:
		arg, err := toVarIDExpr(n.Arg, vars)
		if err != nil {
			return nil, err
		}
		return expr.NewNot[pg.VarID](arg), nil

	case expr.Neg[string]:
		arg, err := toVarIDExpr(n.Arg, vars)
		if err != nil {
			return nil, err
		}
		return expr.NewNeg[pg.VarID](arg), nil

	case expr.Sum[string]:
		args, err := toVarIDAll(n.Args, vars)
		if err != nil {
			return nil, err
		}
		sum := args[0]
		for _, a := range args[1:] {
			sum = expr.NewSum[pg.VarID](sum, a)
		}
		return sum, nil

	case expr.Mult[string]:
		args, err := toVarIDAll(n.Args, vars)
		if err != nil {
			return nil, err
		}
		mult := args[0]
		for _, a := range args[1:] {
			mult = expr.NewMult[pg.VarID](mult, a)
		}
		return mult, nil

	case expr.Mod[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.Mod[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.Equal[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.Equal[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.Greater[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.Greater[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.GreaterEq[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.GreaterEq[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.Less[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.Less[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.LessEq[string]:
		l, r, err := toVarIDPair(n.Lhs, n.Rhs, vars)
		if err != nil {
			return nil, err
		}
		return expr.LessEq[pg.VarID]{Lhs: l, Rhs: r}, nil

	case expr.Append[string]:
		l, r, err := toVarIDPair(n.List, n.Elem, vars)
		if err != nil {
			return nil, err
		}
		return expr.Append[pg.VarID]{List: l, Elem: r}, nil

	case expr.Truncate[string]:
		list, err := toVarIDExpr(n.List, vars)
		if err != nil {
			return nil, err
		}
		return expr.Truncate[pg.VarID]{List: list}, nil

	case expr.Len[string]:
		list, err := toVarIDExpr(n.List, vars)
		if err != nil {
			return nil, err
		}
		return expr.Len[pg.VarID]{List: list}, nil

	default:
		return nil, fmt.Errorf("unknown expression node %T", e)
	}
}

func toVarIDAll(args []expr.Expr[string], vars map[string]pg.VarID) ([]expr.Expr[pg.VarID], error) {
	out := make([]expr.Expr[pg.VarID], len(args))
	for i, a := range args {
		r, err := toVarIDExpr(a, vars)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func toVarIDPair(l, r expr.Expr[string], vars map[string]pg.VarID) (expr.Expr[pg.VarID], expr.Expr[pg.VarID], error) {
	lr, err := toVarIDExpr(l, vars)
	if err != nil {
		return nil, nil, err
	}
	rr, err := toVarIDExpr(r, vars)
	if err != nil {
		return nil, nil, err
	}
	return lr, rr, nil
}
