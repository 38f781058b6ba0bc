package jani

import (
	"encoding/json"
	"fmt"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/frontend/exprlang"
	"github.com/keb77/scan/internal/frontend/scxml"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// pendingComm defers a channel binding until its automaton's Program
// Graph has been built and registered, the same two-phase technique
// internal/frontend/scxml and internal/frontend/bt use for the same
// reason: cs.Builder.BindSend/BindReceive need a concrete cs.PgID.
type pendingComm struct {
	action  pg.ActionID
	isSend  bool
	channel cs.ChannelID
}

// binding is the channel role one automaton's local action is resolved
// to by a synchronisation vector.
type binding struct {
	channel cs.ChannelID
	isSend  bool
}

// Lower compiles every automaton in m into its own Program Graph,
// registers them all on csb, and wires every binary synchronisation
// vector in m.System.Syncs to a rendezvous channel. It returns the
// cs.PgID assigned to each automaton, keyed by name.
func Lower(m *Model, csb *cs.Builder) (map[string]cs.PgID, error) {
	if len(m.Automata) > 1 && len(m.Variables) > 0 {
		return nil, fmt.Errorf("jani: model-level variables shared across multiple automata are not supported (each Program Graph owns its own variable valuation; cross-automaton shared state has no Channel System representation here)")
	}

	syncChannels := make(map[string]cs.ChannelID) // keyed by Result name (or a synthesized key)
	bindings := make([]map[string]binding, max(len(m.Automata), len(m.System.Elements)))
	for i := range bindings {
		bindings[i] = make(map[string]binding)
	}
	elementIndex := make(map[string]int, len(m.System.Elements))
	for i, el := range m.System.Elements {
		elementIndex[el.Automaton] = i
	}

	for _, s := range m.System.Syncs {
		type participant struct {
			automatonIdx int
			action       string
		}
		var parts []participant
		for i, a := range s.Synchronise {
			if a != nil {
				parts = append(parts, participant{automatonIdx: i, action: *a})
			}
		}
		switch {
		case len(parts) <= 1:
			continue // vacuous or single-automaton rename: fires unsynchronized
		case len(parts) == 2:
			key := ""
			if s.Result != nil {
				key = *s.Result
			} else {
				key = fmt.Sprintf("%s/%s", parts[0].action, parts[1].action)
			}
			ch, ok := syncChannels[key]
			if !ok {
				ch = csb.NewChannel(value.BoolType, 0)
				syncChannels[key] = ch
			}
			bindings[parts[0].automatonIdx][parts[0].action] = binding{channel: ch, isSend: true}
			bindings[parts[1].automatonIdx][parts[1].action] = binding{channel: ch, isSend: false}
		default:
			return nil, fmt.Errorf("jani: synchronisation vector with %d participating automata is not supported (only binary rendezvous is)", len(parts))
		}
	}

	ids := make(map[string]cs.PgID, len(m.Automata))
	for i, a := range m.Automata {
		bi := i
		if idx, ok := elementIndex[a.Name]; ok {
			bi = idx // sync vectors index automata by their system-element position
		} else if len(m.System.Elements) > 0 {
			continue // automaton declared but not composed into the system: unreachable, skip
		}
		pgID, err := lowerAutomaton(a, m.Variables, bindings[bi], csb)
		if err != nil {
			return nil, fmt.Errorf("jani: automaton %q: %w", a.Name, err)
		}
		ids[a.Name] = pgID
	}
	return ids, nil
}

func lowerAutomaton(a Automaton, globals []Variable, binds map[string]binding, csb *cs.Builder) (cs.PgID, error) {
	b := pg.NewBuilder()

	varIDs := make(map[string]pg.VarID)
	declared := make(map[string]value.Type)

	for _, v := range append(append([]Variable{}, globals...), a.Variables...) {
		t, err := resolveType(v.Type)
		if err != nil {
			return 0, err
		}
		var id pg.VarID
		if v.InitialValue != nil {
			e, err := parseExpr(v.InitialValue)
			if err != nil {
				return 0, err
			}
			c, ok := e.(expr.Const[string])
			if !ok {
				return 0, fmt.Errorf("variable %q: initial value must be a literal constant", v.Name)
			}
			id, err = b.NewVarWithInitial(t, c.Value)
			if err != nil {
				return 0, err
			}
		} else {
			id = b.NewVar(t)
		}
		varIDs[v.Name] = id
		declared[v.Name] = t
	}

	locs := make(map[string]pg.LocationID, len(a.Locations))
	for _, l := range a.Locations {
		locs[l.Name] = b.NewLocation()
	}
	initLoc, ok := locs[a.InitialLocations[0]]
	if !ok {
		return 0, fmt.Errorf("initial location %q is not declared", a.InitialLocations[0])
	}
	b.SetInitial(initLoc)

	var syncSink pg.VarID
	var haveSyncSink bool

	var pending []pendingComm
	for _, e := range a.Edges {
		from, ok := locs[e.Location]
		if !ok {
			return 0, fmt.Errorf("edge references undeclared location %q", e.Location)
		}
		guard, err := resolveExpr(e.Guard, declared, varIDs)
		if err != nil {
			return 0, err
		}

		dest := e.Destinations[0]
		to, ok := locs[dest.Location]
		if !ok {
			return 0, fmt.Errorf("edge destination references undeclared location %q", dest.Location)
		}

		action := b.NewAction()
		for _, asg := range dest.Assignments {
			target, ok := varIDs[asg.Ref]
			if !ok {
				return 0, fmt.Errorf("assignment references undeclared variable %q", asg.Ref)
			}
			valExpr, err := resolveValueExpr(asg.Value, declared, varIDs)
			if err != nil {
				return 0, err
			}
			b.AddEffect(action, target, valExpr)
		}
		b.AddTransition(from, action, guard, to)

		if e.Action != nil {
			if bind, ok := binds[*e.Action]; ok {
				if bind.isSend {
					pending = append(pending, pendingComm{action: action, isSend: true, channel: bind.channel})
				} else {
					if !haveSyncSink {
						syncSink = b.NewVar(value.BoolType)
						haveSyncSink = true
					}
					pending = append(pending, pendingComm{action: action, isSend: false, channel: bind.channel})
				}
			}
		}
	}

	graph, err := b.Build()
	if err != nil {
		return 0, err
	}
	pgID := csb.NewProgramGraph(graph)
	for _, pc := range pending {
		if pc.isSend {
			csb.BindSend(pgID, pc.action, pc.channel, expr.Const[pg.VarID]{Value: value.BoolVal(true)}, nil)
		} else {
			csb.BindReceive(pgID, pc.action, pc.channel, syncSink)
		}
	}
	return pgID, nil
}

func resolveExpr(g *Guard, declared map[string]value.Type, varIDs map[string]pg.VarID) (expr.Expr[pg.VarID], error) {
	if g == nil {
		return expr.Const[pg.VarID]{Value: value.BoolVal(true)}, nil
	}
	return resolveValueExpr(g.Exp, declared, varIDs)
}

func resolveValueExpr(raw json.RawMessage, declared map[string]value.Type, varIDs map[string]pg.VarID) (expr.Expr[pg.VarID], error) {
	e, err := parseExpr(raw)
	if err != nil {
		return nil, err
	}
	resolved, err := exprlang.ResolveVars(e, declared)
	if err != nil {
		return nil, err
	}
	return scxml.ToVarIDExpr(resolved, varIDs)
}
