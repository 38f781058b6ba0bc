package value

import "fmt"

// Val is a tagged runtime value of one of the five shapes in Kind. Values
// are immutable: every operation that would "mutate" a Product or List
// returns a new Val.
type Val struct {
	kind  Kind
	b     bool
	i     int32
	f     Float
	comps []Val // Product
	elem  *Type // List: element type, retained even when list is empty
	list  []Val // List: elements
}

func BoolVal(b bool) Val   { return Val{kind: Bool, b: b} }
func IntVal(i int32) Val   { return Val{kind: Int, i: i} }
func FloatVal(f Float) Val { return Val{kind: Float, f: f} }

// TupleVal builds a Product value from its ordered components.
func TupleVal(comps ...Val) Val {
	cs := make([]Val, len(comps))
	copy(cs, comps)
	return Val{kind: Product, comps: cs}
}

// ListVal builds a List value of the given element type from its elements.
// elems may be empty; the element type is retained regardless.
func ListVal(elemType Type, elems ...Val) Val {
	t := elemType
	es := make([]Val, len(elems))
	copy(es, elems)
	return Val{kind: List, elem: &t, list: es}
}

func (v Val) Kind() Kind { return v.kind }

func (v Val) Bool() bool {
	if v.kind != Bool {
		panic("value: Bool called on non-Bool Val")
	}
	return v.b
}

func (v Val) Int() int32 {
	if v.kind != Int {
		panic("value: Int called on non-Int Val")
	}
	return v.i
}

func (v Val) Float() Float {
	if v.kind != Float {
		panic("value: Float called on non-Float Val")
	}
	return v.f
}

func (v Val) Components() []Val {
	if v.kind != Product {
		return nil
	}
	return v.comps
}

// Elements returns the elements of a List value in order.
func (v Val) Elements() []Val {
	if v.kind != List {
		return nil
	}
	return v.list
}

// ElemType returns the retained element type of a List value.
func (v Val) ElemType() Type {
	if v.kind != List {
		panic("value: ElemType called on non-List Val")
	}
	return *v.elem
}

// TypeOf recovers the Type of a value. For lists the element type is
// recovered even when the list is empty, since it is carried on the Val.
func TypeOf(v Val) Type {
	switch v.kind {
	case Bool:
		return BoolType
	case Int:
		return IntType
	case Float:
		return FloatType
	case Product:
		comps := make([]Type, len(v.comps))
		for i, c := range v.comps {
			comps[i] = TypeOf(c)
		}
		return ProductType(comps...)
	case List:
		return ListType(*v.elem)
	default:
		panic("value: TypeOf called on unknown Kind")
	}
}

// Equal is structural equality over values, used for map keys and for the
// evaluator's Equal/GreaterEq/LessEq/Greater/Less comparisons. Floats
// compare via Float.Equal's total order, not plain float64 ==.
func (v Val) Equal(other Val) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.b == other.b
	case Int:
		return v.i == other.i
	case Float:
		return v.f.Equal(other.f)
	case Product:
		if len(v.comps) != len(other.comps) {
			return false
		}
		for i := range v.comps {
			if !v.comps[i].Equal(other.comps[i]) {
				return false
			}
		}
		return true
	case List:
		if !v.elem.Equal(*other.elem) || len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Append returns a new list with x appended after the last element. It
// panics if v is not a List or x's type does not match the list's element
// type; callers that have not run type-checking must guard against this
// (see internal/compile, where this is surfaced as a recoverable error
// instead of a panic).
func (v Val) Append(x Val) Val {
	if v.kind != List {
		panic("value: Append called on non-List Val")
	}
	if !TypeOf(x).Equal(*v.elem) {
		panic("value: Append element type mismatch")
	}
	list := make([]Val, len(v.list)+1)
	copy(list, v.list)
	list[len(v.list)] = x
	return Val{kind: List, elem: v.elem, list: list}
}

// Truncate returns a new list with the last element dropped. It panics on
// an empty list; callers must check Len first (see internal/compile).
func (v Val) Truncate() Val {
	if v.kind != List {
		panic("value: Truncate called on non-List Val")
	}
	if len(v.list) == 0 {
		panic("value: Truncate called on empty list")
	}
	list := make([]Val, len(v.list)-1)
	copy(list, v.list[:len(v.list)-1])
	return Val{kind: List, elem: v.elem, list: list}
}

// Len returns the number of elements in a List value.
func (v Val) Len() int32 {
	if v.kind != List {
		panic("value: Len called on non-List Val")
	}
	return int32(len(v.list))
}

// String renders the value for diagnostics (logging, validate dumps).
func (v Val) String() string {
	switch v.kind {
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Int:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return v.f.String()
	case Product:
		s := "("
		for i, c := range v.comps {
			if i > 0 {
				s += ", "
			}
			s += c.String()
		}
		return s + ")"
	case List:
		s := "["
		for i, e := range v.list {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return "<invalid>"
	}
}
