package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exprpkg "github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/value"
)

// buildCounter creates a single-location PG with a single Int variable x
// starting at 0, and one action incrementing x by 1, looping on a
// self-transition guarded by x < 3.
func buildCounter(t *testing.T) (*ProgramGraph, VarID, ActionID) {
	t.Helper()
	b := NewBuilder()
	loc := b.NewLocation()
	x := b.NewVar(value.IntType)
	incr := b.NewAction()
	b.AddEffect(incr, x, exprpkg.Sum[VarID]{Args: []exprpkg.Expr[VarID]{
		exprpkg.Var[VarID]{Name: x, Declared: value.IntType},
		exprpkg.Const[VarID]{Value: value.IntVal(1)},
	}})
	guard := exprpkg.Less[VarID]{
		Lhs: exprpkg.Var[VarID]{Name: x, Declared: value.IntType},
		Rhs: exprpkg.Const[VarID]{Value: value.IntVal(3)},
	}
	b.AddTransition(loc, incr, guard, loc)
	b.SetInitial(loc)

	g, err := b.Build()
	require.NoError(t, err)
	return g, x, incr
}

func TestProgramGraphInitialConfiguration(t *testing.T) {
	g, x, _ := buildCounter(t)
	cfg := g.InitialConfiguration()
	v, ok := cfg.Vars.Get(x)
	require.True(t, ok)
	assert.Equal(t, int32(0), v.Int())
}

func TestProgramGraphStepAppliesEffectsAndAdvancesLocation(t *testing.T) {
	g, x, incr := buildCounter(t)
	cfg := g.InitialConfiguration()

	moves, err := g.Enabled(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)

	next, err := g.Step(cfg, incr, moves[0].To)
	require.NoError(t, err)
	v, _ := next.Vars.Get(x)
	assert.Equal(t, int32(1), v.Int())
}

func TestProgramGraphDisablesOnGuardFalse(t *testing.T) {
	g, x, incr := buildCounter(t)
	cfg := g.InitialConfiguration()

	for i := 0; i < 3; i++ {
		moves, err := g.Enabled(cfg)
		require.NoError(t, err)
		require.Len(t, moves, 1)
		cfg, err = g.Step(cfg, incr, moves[0].To)
		require.NoError(t, err)
	}

	v, _ := cfg.Vars.Get(x)
	assert.Equal(t, int32(3), v.Int())

	moves, err := g.Enabled(cfg)
	require.NoError(t, err)
	assert.Empty(t, moves, "guard x < 3 must be false once x reaches 3")
}

func TestProgramGraphStepRejectsDisabledMove(t *testing.T) {
	g, _, incr := buildCounter(t)
	cfg := g.InitialConfiguration()
	_, err := g.Step(cfg, incr, LocationID(999))
	require.Error(t, err)
	assert.True(t, IsError(err, NotEnabled))
}

func TestBuildRejectsEffectTypeMismatch(t *testing.T) {
	b := NewBuilder()
	loc := b.NewLocation()
	x := b.NewVar(value.IntType)
	act := b.NewAction()
	b.AddEffect(act, x, exprpkg.Const[VarID]{Value: value.BoolVal(true)})
	b.AddTransition(loc, act, exprpkg.Const[VarID]{Value: value.BoolVal(true)}, loc)
	b.SetInitial(loc)

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsError(err, TypeMismatch))
}

func TestBuildRejectsNonBoolGuard(t *testing.T) {
	b := NewBuilder()
	loc := b.NewLocation()
	act := b.NewAction()
	b.AddTransition(loc, act, exprpkg.Const[VarID]{Value: value.IntVal(1)}, loc)
	b.SetInitial(loc)

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsError(err, TypeMismatch))
}

func TestBuildRejectsUnknownVariableInGuard(t *testing.T) {
	b := NewBuilder()
	loc := b.NewLocation()
	act := b.NewAction()
	phantom := VarID(999)
	guard := exprpkg.Var[VarID]{Name: phantom, Declared: value.BoolType}
	b.AddTransition(loc, act, guard, loc)
	b.SetInitial(loc)

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsError(err, UnknownVariable))
}

func TestBuildRequiresInitialLocation(t *testing.T) {
	b := NewBuilder()
	b.NewLocation()
	_, err := b.Build()
	require.Error(t, err)
}

func TestNewVarWithInitialOverridesDefault(t *testing.T) {
	b := NewBuilder()
	loc := b.NewLocation()
	x, err := b.NewVarWithInitial(value.IntType, value.IntVal(41))
	require.NoError(t, err)
	b.SetInitial(loc)

	g, err := b.Build()
	require.NoError(t, err)
	cfg := g.InitialConfiguration()
	v, _ := cfg.Vars.Get(x)
	assert.Equal(t, int32(41), v.Int())
}

func TestNewVarWithInitialRejectsTypeMismatch(t *testing.T) {
	b := NewBuilder()
	_, err := b.NewVarWithInitial(value.IntType, value.BoolVal(true))
	require.Error(t, err)
	assert.True(t, IsError(err, TypeMismatch))
}

func TestEnabledPreservesInsertionOrder(t *testing.T) {
	b := NewBuilder()
	loc := b.NewLocation()
	other := b.NewLocation()
	a1 := b.NewAction()
	a2 := b.NewAction()
	trueGuard := func() exprpkg.Expr[VarID] { return exprpkg.Const[VarID]{Value: value.BoolVal(true)} }
	b.AddTransition(loc, a2, trueGuard(), other)
	b.AddTransition(loc, a1, trueGuard(), other)
	b.SetInitial(loc)

	g, err := b.Build()
	require.NoError(t, err)
	moves, err := g.Enabled(g.InitialConfiguration())
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, a2, moves[0].Action)
	assert.Equal(t, a1, moves[1].Action)
}
