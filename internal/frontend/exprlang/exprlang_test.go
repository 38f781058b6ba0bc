package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/compile"
	"github.com/keb77/scan/internal/value"
)

func eval(t *testing.T, src string, vars map[string]value.Val) value.Val {
	t.Helper()
	tree, err := Parse(src)
	require.NoError(t, err)

	declared := make(map[string]value.Type, len(vars))
	for name, v := range vars {
		declared[name] = value.TypeOf(v)
	}
	resolved, err := ResolveVars(tree, declared)
	require.NoError(t, err)

	ev := compile.Compile(resolved)
	got, err := ev(func(name string) value.Val { return vars[name] })
	require.NoError(t, err)
	return got
}

func TestParseArithmeticPrecedence(t *testing.T) {
	v := eval(t, "1 + 2 * 3", nil)
	assert.True(t, v.Equal(value.IntVal(7)))
}

func TestParseComparisonAndLogic(t *testing.T) {
	v := eval(t, "x > 0 && x < 10", map[string]value.Val{"x": value.IntVal(5)})
	assert.True(t, v.Equal(value.BoolVal(true)))
}

func TestParseImplies(t *testing.T) {
	v := eval(t, "false -> true", nil)
	assert.True(t, v.Equal(value.BoolVal(true)))
}

func TestParseUnaryNotAndNeg(t *testing.T) {
	v := eval(t, "!(x == 0)", map[string]value.Val{"x": value.IntVal(1)})
	assert.True(t, v.Equal(value.BoolVal(true)))

	v = eval(t, "-x", map[string]value.Val{"x": value.IntVal(3)})
	assert.True(t, v.Equal(value.IntVal(-3)))
}

func TestParseTupleAndComponent(t *testing.T) {
	v := eval(t, "(1, true).0", nil)
	assert.True(t, v.Equal(value.IntVal(1)))
}

func TestParseLenTruncateAppend(t *testing.T) {
	xs := value.ListVal(value.IntType, value.IntVal(1), value.IntVal(2))
	v := eval(t, "len(xs)", map[string]value.Val{"xs": xs})
	assert.True(t, v.Equal(value.IntVal(2)))

	v = eval(t, "append(xs, 3)", map[string]value.Val{"xs": xs})
	assert.True(t, v.Equal(value.ListVal(value.IntType, value.IntVal(1), value.IntVal(2), value.IntVal(3))))

	v = eval(t, "truncate(xs)", map[string]value.Val{"xs": xs})
	assert.True(t, v.Equal(value.ListVal(value.IntType, value.IntVal(1))))
}

func TestParseRejectsUnknownCharacter(t *testing.T) {
	_, err := Parse("1 @ 2")
	assert.Error(t, err)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse("1 + 2)")
	assert.Error(t, err)
}

func TestResolveVarsRejectsUnknownVariable(t *testing.T) {
	tree, err := Parse("x + 1")
	require.NoError(t, err)
	_, err = ResolveVars(tree, map[string]value.Type{})
	assert.Error(t, err)
}

func TestParseFloatLiteral(t *testing.T) {
	v := eval(t, "1.5 + 2.5", nil)
	assert.True(t, v.Equal(value.FloatVal(value.NewFloat(4.0))))
}
