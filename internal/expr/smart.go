package expr

import "github.com/keb77/scan/internal/value"

// NewAnd builds a conjunction, flattening nested And nodes and collapsing
// the 0- and 1-argument cases (and() with no arguments is the
// constant true).
func NewAnd[V comparable](args ...Expr[V]) Expr[V] {
	switch len(args) {
	case 0:
		return Const[V]{Value: value.BoolVal(true)}
	case 1:
		return args[0]
	default:
		flat := make([]Expr[V], 0, len(args))
		for _, a := range args {
			if sub, ok := a.(And[V]); ok {
				flat = append(flat, sub.Args...)
			} else {
				flat = append(flat, a)
			}
		}
		return And[V]{Args: flat}
	}
}

// NewOr builds a disjunction, flattening nested Or nodes and collapsing
// the 0- and 1-argument cases (or() with no arguments is the constant
// false).
func NewOr[V comparable](args ...Expr[V]) Expr[V] {
	switch len(args) {
	case 0:
		return Const[V]{Value: value.BoolVal(false)}
	case 1:
		return args[0]
	default:
		flat := make([]Expr[V], 0, len(args))
		for _, a := range args {
			if sub, ok := a.(Or[V]); ok {
				flat = append(flat, sub.Args...)
			} else {
				flat = append(flat, a)
			}
		}
		return Or[V]{Args: flat}
	}
}

// NewComponent projects index out of of, short-circuiting through a
// literal Tuple rather than building a Component node around it.
func NewComponent[V comparable](of Expr[V], index int) Expr[V] {
	if t, ok := of.(Tuple[V]); ok {
		return t.Elems[index]
	}
	return Component[V]{Index: index, Of: of}
}

// NewNot negates arg, cancelling a double negation instead of nesting.
func NewNot[V comparable](arg Expr[V]) Expr[V] {
	if n, ok := arg.(Not[V]); ok {
		return n.Arg
	}
	return Not[V]{Arg: arg}
}

// NewNeg arithmetically negates arg, cancelling a double negation instead
// of nesting (the grammar's "Opposite").
func NewNeg[V comparable](arg Expr[V]) Expr[V] {
	if n, ok := arg.(Neg[V]); ok {
		return n.Arg
	}
	return Neg[V]{Arg: arg}
}

// NewSum adds lhs and rhs, flattening either side that is already a Sum
// so repeated addition stays a single n-ary node.
func NewSum[V comparable](lhs, rhs Expr[V]) Expr[V] {
	var args []Expr[V]
	if s, ok := lhs.(Sum[V]); ok {
		args = append(args, s.Args...)
	} else {
		args = append(args, lhs)
	}
	if s, ok := rhs.(Sum[V]); ok {
		args = append(args, s.Args...)
	} else {
		args = append(args, rhs)
	}
	return Sum[V]{Args: args}
}

// NewMult multiplies lhs and rhs, flattening either side that is already
// a Mult so repeated multiplication stays a single n-ary node.
func NewMult[V comparable](lhs, rhs Expr[V]) Expr[V] {
	var args []Expr[V]
	if m, ok := lhs.(Mult[V]); ok {
		args = append(args, m.Args...)
	} else {
		args = append(args, lhs)
	}
	if m, ok := rhs.(Mult[V]); ok {
		args = append(args, m.Args...)
	} else {
		args = append(args, rhs)
	}
	return Mult[V]{Args: args}
}
