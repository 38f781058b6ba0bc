package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOfMatchesTypeOf(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		for _, typ := range []Type{BoolType, IntType, FloatType} {
			got := TypeOf(DefaultOf(typ))
			assert.True(t, got.Equal(typ), "TypeOf(DefaultOf(%v)) = %v", typ, got)
		}
	})

	t.Run("product", func(t *testing.T) {
		pt := ProductType(IntType, BoolType, FloatType)
		assert.True(t, TypeOf(DefaultOf(pt)).Equal(pt))
	})

	t.Run("list retains empty element type", func(t *testing.T) {
		lt := ListType(IntType)
		def := DefaultOf(lt)
		assert.Empty(t, def.Elements())
		assert.True(t, TypeOf(def).Equal(lt))
	})

	t.Run("nested list", func(t *testing.T) {
		lt := ListType(ListType(BoolType))
		assert.True(t, TypeOf(DefaultOf(lt)).Equal(lt))
	})
}

func TestFloatTotalOrder(t *testing.T) {
	nan1 := NewFloat(nan())
	nan2 := NewFloat(nan())
	assert.True(t, nan1.Equal(nan2), "NaN must equal itself under the total order")
	assert.Equal(t, 0, nan1.Compare(nan2))

	posZero := NewFloat(0.0)
	negZero := NewFloat(negZeroConst())
	assert.True(t, posZero.Equal(negZero), "+0.0 and -0.0 must compare equal")

	lo, hi := NewFloat(1.0), NewFloat(2.0)
	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
	assert.Equal(t, -1, hi.Compare(nan1), "every finite value orders before NaN")
}

func TestValEquality(t *testing.T) {
	tup := func(vs ...Val) Val { return TupleVal(vs...) }

	assert.True(t, IntVal(3).Equal(IntVal(3)))
	assert.False(t, IntVal(3).Equal(IntVal(4)))
	assert.False(t, IntVal(3).Equal(BoolVal(true)), "different kinds never equal")

	a := tup(IntVal(1), BoolVal(true))
	b := tup(IntVal(1), BoolVal(true))
	c := tup(IntVal(1), BoolVal(false))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	empty1 := ListVal(IntType)
	empty2 := ListVal(IntType)
	assert.True(t, empty1.Equal(empty2), "two empty lists of the same element type are equal")

	l1 := ListVal(IntType, IntVal(1), IntVal(2))
	l2 := ListVal(IntType, IntVal(1), IntVal(2))
	l3 := ListVal(IntType, IntVal(1), IntVal(3))
	assert.True(t, l1.Equal(l2))
	assert.False(t, l1.Equal(l3))
}

func TestListAppendTruncateLen(t *testing.T) {
	l := ListVal(IntType)
	assert.EqualValues(t, 0, l.Len())

	l = l.Append(IntVal(3)).Append(IntVal(5))
	assert.EqualValues(t, 2, l.Len())
	assert.Equal(t, []Val{IntVal(3), IntVal(5)}, l.Elements())

	truncated := l.Truncate()
	assert.EqualValues(t, 1, truncated.Len())
	assert.Equal(t, []Val{IntVal(3)}, truncated.Elements())
}

func TestTruncateEmptyListPanics(t *testing.T) {
	assert.Panics(t, func() {
		ListVal(IntType).Truncate()
	})
}

func TestAppendTypeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		ListVal(IntType).Append(BoolVal(true))
	})
}

func TestTypeEqualIsStructural(t *testing.T) {
	a := ProductType(IntType, ListType(BoolType))
	b := ProductType(IntType, ListType(BoolType))
	c := ProductType(IntType, ListType(IntType))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func negZeroConst() float64 {
	var zero float64
	return -zero
}
