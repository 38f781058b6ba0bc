package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/value"
)

func constI(i int32) Expr[string]   { return Const[string]{Value: value.IntVal(i)} }
func constB(b bool) Expr[string]    { return Const[string]{Value: value.BoolVal(b)} }
func constF(f float64) Expr[string] { return Const[string]{Value: value.FloatVal(f)} }
func varOf(name string, t value.Type) Expr[string] {
	return Var[string]{Name: name, Declared: t}
}

func TestTypeOfScalars(t *testing.T) {
	ty, err := TypeOf[string](constI(3))
	require.NoError(t, err)
	assert.True(t, ty.Equal(value.IntType))

	ty, err = TypeOf[string](constB(true))
	require.NoError(t, err)
	assert.True(t, ty.Equal(value.BoolType))
}

func TestTypeOfEqualRejectsFloat(t *testing.T) {
	_, err := TypeOf[string](Equal[string]{Lhs: constF(1.0), Rhs: constF(1.0)})
	require.Error(t, err)
	assert.True(t, IsTypeError(err, TypeMismatch))
}

func TestTypeOfGreaterAllowsFloat(t *testing.T) {
	ty, err := TypeOf[string](Greater[string]{Lhs: constF(1.0), Rhs: constI(2)})
	require.NoError(t, err)
	assert.True(t, ty.Equal(value.BoolType))
}

func TestTypeOfEqualRequiresSameType(t *testing.T) {
	_, err := TypeOf[string](Equal[string]{Lhs: constI(1), Rhs: constB(true)})
	require.Error(t, err)
	assert.True(t, IsTypeError(err, TypeMismatch))
}

func TestTypeOfSumPromotesToFloat(t *testing.T) {
	ty, err := TypeOf[string](Sum[string]{Args: []Expr[string]{constI(1), constF(2.0)}})
	require.NoError(t, err)
	assert.True(t, ty.Equal(value.FloatType))
}

func TestTypeOfComponentOutOfBounds(t *testing.T) {
	tuple := Tuple[string]{Elems: []Expr[string]{constI(1), constB(true)}}
	_, err := TypeOf[string](Component[string]{Index: 5, Of: tuple})
	require.Error(t, err)
	assert.True(t, IsTypeError(err, MissingComponent))
}

func TestTypeOfComponentNonTuple(t *testing.T) {
	_, err := TypeOf[string](Component[string]{Index: 0, Of: constI(1)})
	require.Error(t, err)
	assert.True(t, IsTypeError(err, TypeMismatch))
}

func TestTypeOfAppendElemMismatch(t *testing.T) {
	list := Const[string]{Value: value.ListVal(value.IntType)}
	_, err := TypeOf[string](Append[string]{List: list, Elem: constB(true)})
	require.Error(t, err)
	assert.True(t, IsTypeError(err, TypeMismatch))
}

func TestContextDetectsUnknownVar(t *testing.T) {
	e := varOf("x", value.IntType)
	resolve := func(string) (value.Type, bool) { return value.Type{}, false }
	err := Context[string](e, resolve)
	require.Error(t, err)
	assert.True(t, IsTypeError(err, UnknownVar))
}

func TestContextDetectsDeclaredMismatch(t *testing.T) {
	e := varOf("x", value.IntType)
	resolve := func(string) (value.Type, bool) { return value.BoolType, true }
	err := Context[string](e, resolve)
	require.Error(t, err)
	assert.True(t, IsTypeError(err, TypeMismatch))
}

func TestContextWalksCompoundNodes(t *testing.T) {
	e := NewAnd[string](
		varOf("a", value.BoolType),
		NewNot[string](varOf("b", value.BoolType)),
	)
	resolve := func(name string) (value.Type, bool) { return value.BoolType, true }
	assert.NoError(t, Context[string](e, resolve))
}

func TestNewAndCollapsesArity(t *testing.T) {
	assert.Equal(t, Const[string]{Value: value.BoolVal(true)}, NewAnd[string]())

	single := constB(true)
	assert.Equal(t, single, NewAnd[string](single))
}

func TestNewAndFlattensNested(t *testing.T) {
	inner := NewAnd[string](constB(true), constB(false))
	outer := NewAnd[string](inner, constB(true))

	flat, ok := outer.(And[string])
	require.True(t, ok)
	assert.Len(t, flat.Args, 3)
}

func TestNewOrCollapsesArity(t *testing.T) {
	assert.Equal(t, Const[string]{Value: value.BoolVal(false)}, NewOr[string]())
}

func TestNewNotCancelsDoubleNegation(t *testing.T) {
	e := constB(true)
	double := NewNot[string](NewNot[string](e))
	assert.Equal(t, e, double)
}

func TestNewNegCancelsDoubleOpposite(t *testing.T) {
	e := constI(4)
	double := NewNeg[string](NewNeg[string](e))
	assert.Equal(t, e, double)
}

func TestNewComponentShortCircuitsLiteralTuple(t *testing.T) {
	a, b := constI(1), constB(true)
	tuple := Tuple[string]{Elems: []Expr[string]{a, b}}
	assert.Equal(t, b, NewComponent[string](tuple, 1))
}

func TestNewSumFlattensNested(t *testing.T) {
	inner := NewSum[string](constI(1), constI(2))
	outer := NewSum[string](inner, constI(3))

	flat, ok := outer.(Sum[string])
	require.True(t, ok)
	assert.Len(t, flat.Args, 3)
}

func TestNewMultFlattensNested(t *testing.T) {
	inner := NewMult[string](constI(2), constI(3))
	outer := NewMult[string](constI(4), inner)

	flat, ok := outer.(Mult[string])
	require.True(t, ok)
	assert.Len(t, flat.Args, 3)
}
