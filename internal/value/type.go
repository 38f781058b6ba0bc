// Package value defines the runtime value and type algebra shared by every
// other package in SCAN: the expression tree, the compiled evaluator, and
// the program-graph/channel-system configurations all traffic in value.Val
// and value.Type.
package value

import "fmt"

// Kind identifies which of the five Type constructors a Type carries.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	Product
	List
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Product:
		return "product"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// Type is the closed set of types in the language: Bool, Int, Float,
// Product (an ordered tuple of component types) and List (a homogeneous,
// mutable-length sequence). It is a value type: two Types are structurally
// equal, never reference-equal.
type Type struct {
	kind  Kind
	comps []Type // Product: component types, in order
	elem  *Type  // List: element type
}

// BoolType, IntType and FloatType are the three scalar types.
var (
	BoolType  = Type{kind: Bool}
	IntType   = Type{kind: Int}
	FloatType = Type{kind: Float}
)

// ProductType builds a tuple type from its ordered component types.
func ProductType(comps ...Type) Type {
	cs := make([]Type, len(comps))
	copy(cs, comps)
	return Type{kind: Product, comps: cs}
}

// ListType builds a homogeneous list type over the given element type.
func ListType(elem Type) Type {
	e := elem
	return Type{kind: List, elem: &e}
}

// Kind reports which constructor built this Type.
func (t Type) Kind() Kind { return t.kind }

// Components returns the component types of a Product type. It returns nil
// for any other kind.
func (t Type) Components() []Type {
	if t.kind != Product {
		return nil
	}
	return t.comps
}

// Elem returns the element type of a List type. It panics if called on any
// other kind; callers must check Kind() first.
func (t Type) Elem() Type {
	if t.kind != List {
		panic("value: Elem called on non-List type")
	}
	return *t.elem
}

// Equal reports structural type equality.
func (t Type) Equal(other Type) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case Product:
		if len(t.comps) != len(other.comps) {
			return false
		}
		for i := range t.comps {
			if !t.comps[i].Equal(other.comps[i]) {
				return false
			}
		}
		return true
	case List:
		return t.elem.Equal(*other.elem)
	default:
		return true
	}
}

// String renders the type for diagnostics.
func (t Type) String() string {
	switch t.kind {
	case Product:
		s := "("
		for i, c := range t.comps {
			if i > 0 {
				s += ", "
			}
			s += c.String()
		}
		return s + ")"
	case List:
		return fmt.Sprintf("[%s]", t.elem.String())
	default:
		return t.kind.String()
	}
}

// DefaultOf returns the canonical default value of t: false, 0, 0.0, a
// tuple of component defaults, or an empty list carrying t's element type.
func DefaultOf(t Type) Val {
	switch t.kind {
	case Bool:
		return Val{kind: Bool, b: false}
	case Int:
		return Val{kind: Int, i: 0}
	case Float:
		return Val{kind: Float, f: NewFloat(0.0)}
	case Product:
		comps := make([]Val, len(t.comps))
		for i, c := range t.comps {
			comps[i] = DefaultOf(c)
		}
		return Val{kind: Product, comps: comps}
	case List:
		return Val{kind: List, elem: t.elem, list: nil}
	default:
		panic("value: DefaultOf called on unknown Kind")
	}
}
