// Package compile lowers an internal/expr Expression tree into a closure
// that evaluates it against a variable environment: a one-time
// recursive walk builds a tree of closures, so repeated evaluation (once
// per explored Channel System transition) never re-walks the Expr tree.
package compile

import (
	"fmt"

	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/value"
)

// EvalError is returned by an Evaluator when the expression violates a
// runtime precondition that static type-checking should have already
// ruled out (these are "should never happen" failures, the
// sign that a node was evaluated without running expr.TypeOf/Context
// first). Callers are expected to treat it as fatal.
type EvalError struct {
	Kind EvalErrorKind
	Msg  string
}

type EvalErrorKind int

const (
	// ErrEvalType marks an operand of the wrong kind reaching an operator.
	ErrEvalType EvalErrorKind = iota
	// ErrEmptyList marks Truncate applied to an empty list, which is a
	// distinct precondition violation from a plain type mismatch
	//: kept distinguishable rather than folded into
	// ErrEvalType.
	ErrEmptyList
	// ErrIndexOutOfBounds marks Component projecting past a tuple's arity.
	ErrIndexOutOfBounds
)

func (k EvalErrorKind) String() string {
	switch k {
	case ErrEvalType:
		return "evaluation type error"
	case ErrEmptyList:
		return "truncate of empty list"
	case ErrIndexOutOfBounds:
		return "component index out of bounds"
	default:
		return "evaluation error"
	}
}

func (e *EvalError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func evalErr(kind EvalErrorKind, format string, args ...any) error {
	return &EvalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Env resolves a variable label to its current value. Resolution failure
// is not modeled: by the time an Evaluator runs, expr.Context has already
// established every Var node resolves, so Env is a total function over
// the labels that appear in the compiled expression.
type Env[V comparable] func(V) value.Val

// Evaluator is a compiled expression: given an environment, it produces
// a value or a runtime evaluation error.
type Evaluator[V comparable] func(Env[V]) (value.Val, error)

// Compile lowers e into an Evaluator. It does not type-check e; callers
// must run expr.TypeOf and expr.Context beforehand — a
// badly-typed tree compiles without complaint and only fails, as an
// EvalError, the first time the bad node is actually evaluated.
func Compile[V comparable](e expr.Expr[V]) Evaluator[V] {
	switch n := e.(type) {
	case expr.Const[V]:
		val := n.Value
		return func(Env[V]) (value.Val, error) { return val, nil }

	case expr.Var[V]:
		name := n.Name
		return func(env Env[V]) (value.Val, error) { return env(name), nil }

	case expr.Tuple[V]:
		parts := compileAll(n.Elems)
		return func(env Env[V]) (value.Val, error) {
			vals := make([]value.Val, len(parts))
			for i, p := range parts {
				v, err := p(env)
				if err != nil {
					return value.Val{}, err
				}
				vals[i] = v
			}
			return value.TupleVal(vals...), nil
		}

	case expr.Component[V]:
		of := Compile(n.Of)
		index := n.Index
		return func(env Env[V]) (value.Val, error) {
			v, err := of(env)
			if err != nil {
				return value.Val{}, err
			}
			if value.TypeOf(v).Kind() != value.Product {
				return value.Val{}, evalErr(ErrEvalType, "Component of non-Product value")
			}
			comps := v.Components()
			if index < 0 || index >= len(comps) {
				return value.Val{}, evalErr(ErrIndexOutOfBounds, "index %d out of %d components", index, len(comps))
			}
			return comps[index], nil
		}

	case expr.And[V]:
		args := compileAll(n.Args)
		return func(env Env[V]) (value.Val, error) {
			for _, a := range args {
				v, err := a(env)
				if err != nil {
					return value.Val{}, err
				}
				if v.Kind() != value.Bool {
					return value.Val{}, evalErr(ErrEvalType, "And operand is not Bool")
				}
				if !v.Bool() {
					return value.BoolVal(false), nil
				}
			}
			return value.BoolVal(true), nil
		}

	case expr.Or[V]:
		args := compileAll(n.Args)
		return func(env Env[V]) (value.Val, error) {
			for _, a := range args {
				v, err := a(env)
				if err != nil {
					return value.Val{}, err
				}
				if v.Kind() != value.Bool {
					return value.Val{}, evalErr(ErrEvalType, "Or operand is not Bool")
				}
				if v.Bool() {
					return value.BoolVal(true), nil
				}
			}
			return value.BoolVal(false), nil
		}

	case expr.Implies[V]:
		lhs, rhs := Compile(n.Lhs), Compile(n.Rhs)
		return func(env Env[V]) (value.Val, error) {
			l, err := lhs(env)
			if err != nil {
				return value.Val{}, err
			}
			r, err := rhs(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.Bool || r.Kind() != value.Bool {
				return value.Val{}, evalErr(ErrEvalType, "Implies operand is not Bool")
			}
			return value.BoolVal(r.Bool() || !l.Bool()), nil
		}

	case expr.Not[V]:
		arg := Compile(n.Arg)
		return func(env Env[V]) (value.Val, error) {
			v, err := arg(env)
			if err != nil {
				return value.Val{}, err
			}
			if v.Kind() != value.Bool {
				return value.Val{}, evalErr(ErrEvalType, "Not operand is not Bool")
			}
			return value.BoolVal(!v.Bool()), nil
		}

	case expr.Neg[V]:
		arg := Compile(n.Arg)
		return func(env Env[V]) (value.Val, error) {
			v, err := arg(env)
			if err != nil {
				return value.Val{}, err
			}
			switch v.Kind() {
			case value.Int:
				return value.IntVal(-v.Int()), nil
			case value.Float:
				return value.FloatVal(-v.Float().Float64()), nil
			default:
				return value.Val{}, evalErr(ErrEvalType, "Opposite operand is not Int or Float")
			}
		}

	case expr.Sum[V]:
		return compileFold(n.Args, "Sum",
			func(a, b int32) int32 { return a + b },
			func(a, b float64) float64 { return a + b })

	case expr.Mult[V]:
		return compileFold(n.Args, "Mult",
			func(a, b int32) int32 { return a * b },
			func(a, b float64) float64 { return a * b })

	case expr.Mod[V]:
		lhs, rhs := Compile(n.Lhs), Compile(n.Rhs)
		return func(env Env[V]) (value.Val, error) {
			l, err := lhs(env)
			if err != nil {
				return value.Val{}, err
			}
			r, err := rhs(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.Int || r.Kind() != value.Int {
				return value.Val{}, evalErr(ErrEvalType, "Mod operand is not Int")
			}
			return value.IntVal(l.Int() % r.Int()), nil
		}

	case expr.Equal[V]:
		lhs, rhs := Compile(n.Lhs), Compile(n.Rhs)
		return func(env Env[V]) (value.Val, error) {
			l, err := lhs(env)
			if err != nil {
				return value.Val{}, err
			}
			r, err := rhs(env)
			if err != nil {
				return value.Val{}, err
			}
			switch {
			case l.Kind() == value.Int && r.Kind() == value.Int:
				return value.BoolVal(l.Int() == r.Int()), nil
			case l.Kind() == value.Bool && r.Kind() == value.Bool:
				return value.BoolVal(l.Bool() == r.Bool()), nil
			default:
				return value.Val{}, evalErr(ErrEvalType, "Equal operands are not both Int or both Bool")
			}
		}

	case expr.Greater[V]:
		return compileOrder(n.Lhs, n.Rhs, "Greater",
			func(a, b int32) bool { return a > b },
			func(a, b float64) bool { return a > b })

	case expr.Less[V]:
		return compileOrder(n.Lhs, n.Rhs, "Less",
			func(a, b int32) bool { return a < b },
			func(a, b float64) bool { return a < b })

	case expr.GreaterEq[V]:
		lhs, rhs := Compile(n.Lhs), Compile(n.Rhs)
		return func(env Env[V]) (value.Val, error) {
			l, err := lhs(env)
			if err != nil {
				return value.Val{}, err
			}
			r, err := rhs(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.Int || r.Kind() != value.Int {
				return value.Val{}, evalErr(ErrEvalType, "GreaterEq operand is not Int")
			}
			return value.BoolVal(l.Int() >= r.Int()), nil
		}

	case expr.LessEq[V]:
		lhs, rhs := Compile(n.Lhs), Compile(n.Rhs)
		return func(env Env[V]) (value.Val, error) {
			l, err := lhs(env)
			if err != nil {
				return value.Val{}, err
			}
			r, err := rhs(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.Int || r.Kind() != value.Int {
				return value.Val{}, evalErr(ErrEvalType, "LessEq operand is not Int")
			}
			return value.BoolVal(l.Int() <= r.Int()), nil
		}

	case expr.Append[V]:
		list, elem := Compile(n.List), Compile(n.Elem)
		return func(env Env[V]) (value.Val, error) {
			l, err := list(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.List {
				return value.Val{}, evalErr(ErrEvalType, "Append target is not a List")
			}
			e, err := elem(env)
			if err != nil {
				return value.Val{}, err
			}
			if !value.TypeOf(e).Equal(l.ElemType()) {
				return value.Val{}, evalErr(ErrEvalType, "Append element type does not match list element type")
			}
			return l.Append(e), nil
		}

	case expr.Truncate[V]:
		list := Compile(n.List)
		return func(env Env[V]) (value.Val, error) {
			l, err := list(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.List {
				return value.Val{}, evalErr(ErrEvalType, "Truncate target is not a List")
			}
			if l.Len() == 0 {
				return value.Val{}, evalErr(ErrEmptyList, "cannot truncate an empty list")
			}
			return l.Truncate(), nil
		}

	case expr.Len[V]:
		list := Compile(n.List)
		return func(env Env[V]) (value.Val, error) {
			l, err := list(env)
			if err != nil {
				return value.Val{}, err
			}
			if l.Kind() != value.List {
				return value.Val{}, evalErr(ErrEvalType, "Len target is not a List")
			}
			return value.IntVal(l.Len()), nil
		}

	default:
		return func(Env[V]) (value.Val, error) {
			return value.Val{}, evalErr(ErrEvalType, "unknown expression node %T", e)
		}
	}
}

func compileAll[V comparable](args []expr.Expr[V]) []Evaluator[V] {
	out := make([]Evaluator[V], len(args))
	for i, a := range args {
		out[i] = Compile(a)
	}
	return out
}

// compileFold implements Sum/Mult's fold: the first Int or Float operand
// seeds the accumulator, each later operand is folded in, and the
// accumulator is promoted to Float the moment a Float operand is folded
// in. An empty fold yields Int(0) for Mult as well as for Sum, not the
// algebraic identity Int(1).
func compileFold[V comparable](args []expr.Expr[V], opName string, foldInt func(int32, int32) int32, foldFloat func(float64, float64) float64) Evaluator[V] {
	parts := compileAll(args)
	return func(env Env[V]) (value.Val, error) {
		acc := value.IntVal(0)
		for i, p := range parts {
			v, err := p(env)
			if err != nil {
				return value.Val{}, err
			}
			if i == 0 && (v.Kind() == value.Int || v.Kind() == value.Float) {
				acc = v
				continue
			}
			switch acc.Kind() {
			case value.Int:
				switch v.Kind() {
				case value.Int:
					acc = value.IntVal(foldInt(acc.Int(), v.Int()))
				case value.Float:
					acc = value.FloatVal(foldFloat(float64(acc.Int()), v.Float().Float64()))
				default:
					return value.Val{}, evalErr(ErrEvalType, "%s operand is not Int or Float", opName)
				}
			case value.Float:
				switch v.Kind() {
				case value.Int:
					acc = value.FloatVal(foldFloat(acc.Float().Float64(), float64(v.Int())))
				case value.Float:
					acc = value.FloatVal(foldFloat(acc.Float().Float64(), v.Float().Float64()))
				default:
					return value.Val{}, evalErr(ErrEvalType, "%s operand is not Int or Float", opName)
				}
			default:
				return value.Val{}, evalErr(ErrEvalType, "%s accumulator corrupted", opName)
			}
		}
		return acc, nil
	}
}

// compileOrder implements Greater/Less: each side is independently Int
// or Float, and mixed-kind comparisons promote the Int side to Float.
func compileOrder[V comparable](lhsExpr, rhsExpr expr.Expr[V], opName string, cmpInt func(int32, int32) bool, cmpFloat func(float64, float64) bool) Evaluator[V] {
	lhs, rhs := Compile(lhsExpr), Compile(rhsExpr)
	return func(env Env[V]) (value.Val, error) {
		l, err := lhs(env)
		if err != nil {
			return value.Val{}, err
		}
		r, err := rhs(env)
		if err != nil {
			return value.Val{}, err
		}
		switch l.Kind() {
		case value.Int:
			switch r.Kind() {
			case value.Int:
				return value.BoolVal(cmpInt(l.Int(), r.Int())), nil
			case value.Float:
				return value.BoolVal(cmpFloat(float64(l.Int()), r.Float().Float64())), nil
			default:
				return value.Val{}, evalErr(ErrEvalType, "%s operand is not Int or Float", opName)
			}
		case value.Float:
			switch r.Kind() {
			case value.Int:
				return value.BoolVal(cmpFloat(l.Float().Float64(), float64(r.Int()))), nil
			case value.Float:
				return value.BoolVal(cmpFloat(l.Float().Float64(), r.Float().Float64())), nil
			default:
				return value.Val{}, evalErr(ErrEvalType, "%s operand is not Int or Float", opName)
			}
		default:
			return value.Val{}, evalErr(ErrEvalType, "%s operand is not Int or Float", opName)
		}
	}
}
