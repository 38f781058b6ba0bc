// Package expr implements the Expression tree: an algebraic
// data type over booleans, integers, floats, tuples and lists, parametric
// over a variable label type V. The variant set is closed: each variant
// carries an unexported marker method so no package outside expr can
// add a new case that type switches would silently miss.
package expr

import "github.com/keb77/scan/internal/value"

// Expr is the closed set of expression node kinds, parametric over the
// variable label type V (typically a string at parse time, an integer
// VarID at compile time).
type Expr[V comparable] interface {
	exprNode()
}

// Const is a literal value.
type Const[V comparable] struct {
	Value value.Val
}

// Var is a reference to a variable, self-describing with its declared type.
type Var[V comparable] struct {
	Name     V
	Declared value.Type
}

// Tuple constructs a product value from its components.
type Tuple[V comparable] struct {
	Elems []Expr[V]
}

// Component projects the i-th element of a tuple expression.
type Component[V comparable] struct {
	Index int
	Of    Expr[V]
}

// And is n-ary logical conjunction. And([]) is the Bool constant true.
type And[V comparable] struct {
	Args []Expr[V]
}

// Or is n-ary logical disjunction. Or([]) is the Bool constant false.
type Or[V comparable] struct {
	Args []Expr[V]
}

// Implies is logical implication, Lhs => Rhs.
type Implies[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// Not is logical negation.
type Not[V comparable] struct {
	Arg Expr[V]
}

// Neg is arithmetic negation (the grammar's "Opposite").
type Neg[V comparable] struct {
	Arg Expr[V]
}

// Sum is n-ary arithmetic addition.
type Sum[V comparable] struct {
	Args []Expr[V]
}

// Mult is n-ary arithmetic multiplication.
type Mult[V comparable] struct {
	Args []Expr[V]
}

// Mod is integer remainder.
type Mod[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// Equal is equality, restricted to Int/Bool operands.
type Equal[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// Greater is LHS > RHS, allowing Int or Float operands.
type Greater[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// GreaterEq is LHS >= RHS, restricted to Int/Bool operands.
type GreaterEq[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// Less is LHS < RHS, allowing Int or Float operands.
type Less[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// LessEq is LHS <= RHS, restricted to Int/Bool operands.
type LessEq[V comparable] struct {
	Lhs, Rhs Expr[V]
}

// Append appends Elem to the end of List.
type Append[V comparable] struct {
	List, Elem Expr[V]
}

// Truncate drops the last element of List.
type Truncate[V comparable] struct {
	List Expr[V]
}

// Len returns the length of List.
type Len[V comparable] struct {
	List Expr[V]
}

func (Const[V]) exprNode()     {}
func (Var[V]) exprNode()       {}
func (Tuple[V]) exprNode()     {}
func (Component[V]) exprNode() {}
func (And[V]) exprNode()       {}
func (Or[V]) exprNode()        {}
func (Implies[V]) exprNode()   {}
func (Not[V]) exprNode()       {}
func (Neg[V]) exprNode()       {}
func (Sum[V]) exprNode()       {}
func (Mult[V]) exprNode()      {}
func (Mod[V]) exprNode()       {}
func (Equal[V]) exprNode()     {}
func (Greater[V]) exprNode()   {}
func (GreaterEq[V]) exprNode() {}
func (Less[V]) exprNode()      {}
func (LessEq[V]) exprNode()    {}
func (Append[V]) exprNode()    {}
func (Truncate[V]) exprNode()  {}
func (Len[V]) exprNode()       {}
