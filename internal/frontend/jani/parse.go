package jani

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/value"
)

// Parse decodes a JANI document and validates that it stays inside
// SCAN's supported (non-probabilistic) subset: every edge must have
// exactly one destination, and that destination's probability, if
// present, must be the literal constant 1.
func Parse(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("jani: %w", err)
	}
	for _, a := range m.Automata {
		if len(a.InitialLocations) != 1 {
			return nil, fmt.Errorf("jani: automaton %q must declare exactly one initial location, found %d", a.Name, len(a.InitialLocations))
		}
		for _, e := range a.Edges {
			if len(e.Destinations) != 1 {
				return nil, fmt.Errorf("jani: automaton %q, edge from %q: probabilistic branching (%d destinations) is not supported", a.Name, e.Location, len(e.Destinations))
			}
			if p := e.Destinations[0].Probability; p != nil {
				lit, ok := literalOne(p.Exp)
				if !ok || !lit {
					return nil, fmt.Errorf("jani: automaton %q, edge from %q: probability is not supported", a.Name, e.Location)
				}
			}
		}
	}
	return &m, nil
}

// literalOne reports whether raw is a JSON expression that is exactly
// the numeric literal 1, the only probability JANI's grammar can carry
// on a non-probabilistic SCAN model.
func literalOne(raw json.RawMessage) (isOne bool, ok bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return false, false
	}
	return f == 1, true
}

// resolveType interprets a JANI variable's "type" field: a bare string
// ("bool"/"int"/"real") or a {"kind":"bounded","base":...} object.
// JANI's unbounded "int"/"real" and bounded "int"/"real" both map to
// SCAN's Int/Float: SCAN's Expression algebra has no
// notion of a variable-carried bound, so a bounded type's lower/upper
// bounds are accepted syntactically and then discarded — out-of-bound
// assignment is simply not checked, a documented limitation rather than
// a silent behavior change (nothing in the unbounded case would have
// checked it either).
func resolveType(raw json.RawMessage) (value.Type, error) {
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		switch bare {
		case "bool":
			return value.BoolType, nil
		case "int":
			return value.IntType, nil
		case "real":
			return value.FloatType, nil
		default:
			return value.Type{}, fmt.Errorf("jani: unsupported variable type %q", bare)
		}
	}

	var bounded struct {
		Kind string          `json:"kind"`
		Base json.RawMessage `json:"base"`
	}
	if err := json.Unmarshal(raw, &bounded); err != nil {
		return value.Type{}, fmt.Errorf("jani: unrecognized variable type: %w", err)
	}
	if bounded.Kind != "bounded" {
		return value.Type{}, fmt.Errorf("jani: unsupported variable type kind %q", bounded.Kind)
	}
	return resolveType(bounded.Base)
}

// parseExpr decodes a JANI expression object into an unresolved
// (string-named, Declared-less) Expression tree: a literal bool/number,
// a bare string naming a variable, or an {"op":...} object. exprlang's
// ResolveVars later fills in each Var's Declared type, and
// scxml.ToVarIDExpr re-targets the tree onto a concrete pg.VarID space —
// the same two-phase pipeline internal/frontend/scxml uses for its own
// attribute-string expressions, reused here instead of re-deriving it,
// since both front-ends bottom out in the same string-named
// internal/expr tree.
func parseExpr(raw json.RawMessage) (expr.Expr[string], error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return expr.Const[string]{Value: value.BoolVal(b)}, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int32(f)) {
			return expr.Const[string]{Value: value.IntVal(int32(f))}, nil
		}
		return expr.Const[string]{Value: value.FloatVal(value.NewFloat(f))}, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return expr.Var[string]{Name: name}, nil
	}

	var op struct {
		Op    string          `json:"op"`
		Exp   json.RawMessage `json:"exp"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
	}
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("jani: unrecognized expression: %w", err)
	}

	if op.Exp != nil {
		arg, err := parseExpr(op.Exp)
		if err != nil {
			return nil, err
		}
		switch op.Op {
		case "¬", "!":
			return expr.NewNot[string](arg), nil
		case "-":
			return expr.NewNeg[string](arg), nil
		default:
			return nil, fmt.Errorf("jani: unsupported unary operator %q", op.Op)
		}
	}

	if op.Left == nil || op.Right == nil {
		return nil, fmt.Errorf("jani: expression object has neither \"exp\" nor \"left\"/\"right\"")
	}
	l, err := parseExpr(op.Left)
	if err != nil {
		return nil, err
	}
	r, err := parseExpr(op.Right)
	if err != nil {
		return nil, err
	}
	switch op.Op {
	case "∧", "&&", "and":
		return expr.NewAnd[string](l, r), nil
	case "∨", "||", "or":
		return expr.NewOr[string](l, r), nil
	case "=":
		return expr.Equal[string]{Lhs: l, Rhs: r}, nil
	case "≠":
		return expr.NewNot[string](expr.Equal[string]{Lhs: l, Rhs: r}), nil
	case "<":
		return expr.Less[string]{Lhs: l, Rhs: r}, nil
	case "≤", "<=":
		return expr.LessEq[string]{Lhs: l, Rhs: r}, nil
	case ">":
		return expr.Greater[string]{Lhs: l, Rhs: r}, nil
	case "≥", ">=":
		return expr.GreaterEq[string]{Lhs: l, Rhs: r}, nil
	case "+":
		return expr.NewSum[string](l, r), nil
	case "-":
		return expr.NewSum[string](l, expr.NewNeg[string](r)), nil
	case "*":
		return expr.NewMult[string](l, r), nil
	case "%":
		return expr.Mod[string]{Lhs: l, Rhs: r}, nil
	default:
		return nil, fmt.Errorf("jani: unsupported binary operator %q", op.Op)
	}
}
