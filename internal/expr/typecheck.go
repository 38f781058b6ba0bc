package expr

import (
	"errors"
	"fmt"

	"github.com/keb77/scan/internal/value"
)

// TypeError is the error kind raised by TypeOf and Context: TypeMismatch,
// MissingComponent, IndexOutOfBounds, or UnknownVar.
type TypeError struct {
	Kind TypeErrorKind
	Msg  string
}

type TypeErrorKind int

const (
	TypeMismatch TypeErrorKind = iota
	MissingComponent
	IndexOutOfBounds
	UnknownVar
)

func (k TypeErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case MissingComponent:
		return "missing component"
	case IndexOutOfBounds:
		return "index out of bounds"
	case UnknownVar:
		return "unknown variable"
	default:
		return "type error"
	}
}

func (e *TypeError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func typeErr(kind TypeErrorKind, format string, args ...any) error {
	return &TypeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsTypeError reports whether err is a *TypeError of the given kind.
func IsTypeError(err error, kind TypeErrorKind) bool {
	var te *TypeError
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// TypeOf computes the static type of e, or a *TypeError if e is badly
// typed. It never consults a variable resolver: Var nodes carry their
// declared type directly, so TypeOf is a pure structural
// walk with no context.
func TypeOf[V comparable](e Expr[V]) (value.Type, error) {
	switch n := e.(type) {
	case Const[V]:
		return value.TypeOf(n.Value), nil

	case Var[V]:
		return n.Declared, nil

	case Tuple[V]:
		comps := make([]value.Type, len(n.Elems))
		for i, sub := range n.Elems {
			t, err := TypeOf(sub)
			if err != nil {
				return value.Type{}, err
			}
			comps[i] = t
		}
		return value.ProductType(comps...), nil

	case Component[V]:
		t, err := TypeOf(n.Of)
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind() != value.Product {
			return value.Type{}, typeErr(TypeMismatch, "Component requires a Product, got %s", t)
		}
		comps := t.Components()
		if n.Index < 0 || n.Index >= len(comps) {
			return value.Type{}, typeErr(MissingComponent, "index %d out of %d components", n.Index, len(comps))
		}
		return comps[n.Index], nil

	case And[V]:
		return typeOfBoolList(n.Args)
	case Or[V]:
		return typeOfBoolList(n.Args)

	case Implies[V]:
		if err := requireBool(n.Lhs); err != nil {
			return value.Type{}, err
		}
		if err := requireBool(n.Rhs); err != nil {
			return value.Type{}, err
		}
		return value.BoolType, nil

	case Not[V]:
		if err := requireBool(n.Arg); err != nil {
			return value.Type{}, err
		}
		return value.BoolType, nil

	case Neg[V]:
		t, err := TypeOf(n.Arg)
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind() != value.Int && t.Kind() != value.Float {
			return value.Type{}, typeErr(TypeMismatch, "Opposite requires Int or Float, got %s", t)
		}
		return t, nil

	case Sum[V]:
		return typeOfArith(n.Args)
	case Mult[V]:
		return typeOfArith(n.Args)

	case Mod[V]:
		if err := requireInt(n.Lhs); err != nil {
			return value.Type{}, err
		}
		if err := requireInt(n.Rhs); err != nil {
			return value.Type{}, err
		}
		return value.IntType, nil

	case Equal[V]:
		return typeOfIntBoolSame(n.Lhs, n.Rhs)
	case GreaterEq[V]:
		return typeOfIntBoolSame(n.Lhs, n.Rhs)
	case LessEq[V]:
		return typeOfIntBoolSame(n.Lhs, n.Rhs)

	case Greater[V]:
		return typeOfNumeric(n.Lhs, n.Rhs)
	case Less[V]:
		return typeOfNumeric(n.Lhs, n.Rhs)

	case Append[V]:
		lt, err := TypeOf(n.List)
		if err != nil {
			return value.Type{}, err
		}
		if lt.Kind() != value.List {
			return value.Type{}, typeErr(TypeMismatch, "Append requires a List, got %s", lt)
		}
		et, err := TypeOf(n.Elem)
		if err != nil {
			return value.Type{}, err
		}
		if !et.Equal(lt.Elem()) {
			return value.Type{}, typeErr(TypeMismatch, "Append element type %s does not match list element type %s", et, lt.Elem())
		}
		return lt, nil

	case Truncate[V]:
		lt, err := TypeOf(n.List)
		if err != nil {
			return value.Type{}, err
		}
		if lt.Kind() != value.List {
			return value.Type{}, typeErr(TypeMismatch, "Truncate requires a List, got %s", lt)
		}
		return lt, nil

	case Len[V]:
		lt, err := TypeOf(n.List)
		if err != nil {
			return value.Type{}, err
		}
		if lt.Kind() != value.List {
			return value.Type{}, typeErr(TypeMismatch, "Len requires a List, got %s", lt)
		}
		return value.IntType, nil

	default:
		return value.Type{}, typeErr(TypeMismatch, "unknown expression node %T", e)
	}
}

func requireBool[V comparable](e Expr[V]) error {
	t, err := TypeOf(e)
	if err != nil {
		return err
	}
	if t.Kind() != value.Bool {
		return typeErr(TypeMismatch, "expected Bool, got %s", t)
	}
	return nil
}

func requireInt[V comparable](e Expr[V]) error {
	t, err := TypeOf(e)
	if err != nil {
		return err
	}
	if t.Kind() != value.Int {
		return typeErr(TypeMismatch, "expected Int, got %s", t)
	}
	return nil
}

func typeOfBoolList[V comparable](args []Expr[V]) (value.Type, error) {
	for _, a := range args {
		if err := requireBool(a); err != nil {
			return value.Type{}, err
		}
	}
	return value.BoolType, nil
}

// typeOfArith implements Sum/Mult's rule: all-Int -> Int; a mix of Int and
// Float (including all-Float) -> Float; anything else is a mismatch.
func typeOfArith[V comparable](args []Expr[V]) (value.Type, error) {
	sawFloat := false
	for _, a := range args {
		t, err := TypeOf(a)
		if err != nil {
			return value.Type{}, err
		}
		switch t.Kind() {
		case value.Int:
		case value.Float:
			sawFloat = true
		default:
			return value.Type{}, typeErr(TypeMismatch, "arithmetic operand must be Int or Float, got %s", t)
		}
	}
	if sawFloat {
		return value.FloatType, nil
	}
	return value.IntType, nil
}

// typeOfIntBoolSame implements Equal/GreaterEq/LessEq: both operands must
// be the same type, and that type must be Int or Bool — Float is
// intentionally excluded to avoid accidental float-equality traps.
func typeOfIntBoolSame[V comparable](lhs, rhs Expr[V]) (value.Type, error) {
	lt, err := TypeOf(lhs)
	if err != nil {
		return value.Type{}, err
	}
	rt, err := TypeOf(rhs)
	if err != nil {
		return value.Type{}, err
	}
	if lt.Kind() != value.Int && lt.Kind() != value.Bool {
		return value.Type{}, typeErr(TypeMismatch, "expected Int or Bool operand, got %s", lt)
	}
	if !lt.Equal(rt) {
		return value.Type{}, typeErr(TypeMismatch, "operand type mismatch: %s vs %s", lt, rt)
	}
	return value.BoolType, nil
}

// typeOfNumeric implements Greater/Less: each operand independently must
// be Int or Float (mixing is allowed, unlike typeOfIntBoolSame).
func typeOfNumeric[V comparable](lhs, rhs Expr[V]) (value.Type, error) {
	for _, e := range []Expr[V]{lhs, rhs} {
		t, err := TypeOf(e)
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind() != value.Int && t.Kind() != value.Float {
			return value.Type{}, typeErr(TypeMismatch, "expected Int or Float operand, got %s", t)
		}
	}
	return value.BoolType, nil
}

// Resolver maps a variable label to its declared type, the way a Program
// Graph or Channel System builder resolves variable references during
// context checking.
type Resolver[V comparable] func(V) (value.Type, bool)

// Context walks e ensuring every Var(v, t) node's declared type matches
// what resolve reports for v. It does not recompute
// TypeOf; callers typically run TypeOf then Context, or vice versa.
func Context[V comparable](e Expr[V], resolve Resolver[V]) error {
	switch n := e.(type) {
	case Const[V]:
		return nil

	case Var[V]:
		declared, ok := resolve(n.Name)
		if !ok {
			return typeErr(UnknownVar, "variable %v is not in scope", n.Name)
		}
		if !declared.Equal(n.Declared) {
			return typeErr(TypeMismatch, "variable %v declared as %s but used as %s", n.Name, declared, n.Declared)
		}
		return nil

	case Tuple[V]:
		return contextAll(n.Elems, resolve)
	case And[V]:
		return contextAll(n.Args, resolve)
	case Or[V]:
		return contextAll(n.Args, resolve)
	case Sum[V]:
		return contextAll(n.Args, resolve)
	case Mult[V]:
		return contextAll(n.Args, resolve)

	case Component[V]:
		return Context(n.Of, resolve)
	case Not[V]:
		return Context(n.Arg, resolve)
	case Neg[V]:
		return Context(n.Arg, resolve)
	case Truncate[V]:
		return Context(n.List, resolve)
	case Len[V]:
		return Context(n.List, resolve)

	case Implies[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case Equal[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case Greater[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case GreaterEq[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case Less[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case LessEq[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case Mod[V]:
		return contextPair(n.Lhs, n.Rhs, resolve)
	case Append[V]:
		return contextPair(n.List, n.Elem, resolve)

	default:
		return typeErr(TypeMismatch, "unknown expression node %T", e)
	}
}

func contextAll[V comparable](args []Expr[V], resolve Resolver[V]) error {
	for _, a := range args {
		if err := Context(a, resolve); err != nil {
			return err
		}
	}
	return nil
}

func contextPair[V comparable](a, b Expr[V], resolve Resolver[V]) error {
	if err := Context(a, resolve); err != nil {
		return err
	}
	return Context(b, resolve)
}
