package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// buildDeadlock builds two Program Graphs, one action each, no
// channels, each with a single transition guarded by false.
func buildDeadlock(t *testing.T) *Model {
	t.Helper()
	csb := cs.NewBuilder()

	mk := func() *pg.ProgramGraph {
		b := pg.NewBuilder()
		l0 := b.NewLocation()
		l1 := b.NewLocation()
		a := b.NewAction()
		b.AddTransition(l0, a, expr.Const[pg.VarID]{Value: value.BoolVal(false)}, l1)
		b.SetInitial(l0)
		g, err := b.Build()
		require.NoError(t, err)
		return g
	}

	idA := csb.NewProgramGraph(mk())
	idB := csb.NewProgramGraph(mk())
	system, err := csb.Build()
	require.NoError(t, err)

	return &Model{System: system, Names: map[cs.PgID]string{idA: "A", idB: "B"}}
}

func TestExecuteDeadlock(t *testing.T) {
	m := buildDeadlock(t)
	trace, err := Execute(m, 1)
	require.NoError(t, err)
	require.True(t, trace.Deadlocked)
	require.Empty(t, trace.Steps)
}

func TestVerifyAggregatesDeadlocks(t *testing.T) {
	m := buildDeadlock(t)
	result, err := Verify(m, 8, 42)
	require.NoError(t, err)
	require.Len(t, result.Runs, 8)
	require.Equal(t, 8, result.Deadlocked)
	for _, r := range result.Runs {
		require.True(t, r.Deadlocked)
		require.Zero(t, r.Steps)
	}
}

func TestVerifyZeroRuns(t *testing.T) {
	m := buildDeadlock(t)
	result, err := Verify(m, 0, 1)
	require.NoError(t, err)
	require.Empty(t, result.Runs)
}

func TestDump(t *testing.T) {
	m := buildDeadlock(t)
	out := Dump(m)
	require.Contains(t, out, "2 program graph(s)")
	require.Contains(t, out, "A")
	require.Contains(t, out, "B")
}

// buildCounter builds a single Program Graph that counts up forever via
// a self-loop, exercising Execute's non-deadlocking path and the
// PgStep/Format rendering.
func buildCounter(t *testing.T) *Model {
	t.Helper()
	csb := cs.NewBuilder()

	b := pg.NewBuilder()
	l0 := b.NewLocation()
	v := b.NewVar(value.IntType)
	a := b.NewAction()
	b.AddEffect(a, v, expr.Sum[pg.VarID]{Args: []expr.Expr[pg.VarID]{
		expr.Var[pg.VarID]{Name: v, Declared: value.IntType},
		expr.Const[pg.VarID]{Value: value.IntVal(1)},
	}})
	b.AddTransition(l0, a, expr.And[pg.VarID]{}, l0)
	b.SetInitial(l0)
	g, err := b.Build()
	require.NoError(t, err)

	id := csb.NewProgramGraph(g)
	system, err := csb.Build()
	require.NoError(t, err)
	return &Model{System: system, Names: map[cs.PgID]string{id: "counter"}}
}

func TestExecuteCapsRunawayModel(t *testing.T) {
	old := maxSteps
	maxSteps = 50
	defer func() { maxSteps = old }()

	m := buildCounter(t)
	trace, err := Execute(m, 1)
	require.NoError(t, err)
	require.False(t, trace.Deadlocked)
	require.Len(t, trace.Steps, 50)
	require.Equal(t, "counter", trace.Steps[0].Primary.PgName)
	require.NotEmpty(t, trace.Steps[0].Format())
}

// buildRendezvous builds a sender and a receiver joined by a capacity-0
// channel, so every move PossibleTransitions reports is a Rendezvous
// carrying a fixed Int payload.
func buildRendezvous(t *testing.T) *Model {
	t.Helper()
	csb := cs.NewBuilder()

	senderB := pg.NewBuilder()
	sLoc := senderB.NewLocation()
	sendAct := senderB.NewAction()
	senderB.AddTransition(sLoc, sendAct, expr.Const[pg.VarID]{Value: value.BoolVal(true)}, sLoc)
	senderB.SetInitial(sLoc)
	senderPG, err := senderB.Build()
	require.NoError(t, err)

	receiverB := pg.NewBuilder()
	rLoc := receiverB.NewLocation()
	received := receiverB.NewVar(value.IntType)
	recvAct := receiverB.NewAction()
	receiverB.AddTransition(rLoc, recvAct, expr.Const[pg.VarID]{Value: value.BoolVal(true)}, rLoc)
	receiverB.SetInitial(rLoc)
	receiverPG, err := receiverB.Build()
	require.NoError(t, err)

	sID := csb.NewProgramGraph(senderPG)
	rID := csb.NewProgramGraph(receiverPG)
	ch := csb.NewChannel(value.IntType, 0)
	csb.BindSend(sID, sendAct, ch, expr.Const[pg.VarID]{Value: value.IntVal(9)}, nil)
	csb.BindReceive(rID, recvAct, ch, received)

	system, err := csb.Build()
	require.NoError(t, err)
	return &Model{System: system, Names: map[cs.PgID]string{sID: "sender", rID: "receiver"}}
}

func TestExecuteTraceCarriesWireEncodedPayload(t *testing.T) {
	old := maxSteps
	maxSteps = 1
	defer func() { maxSteps = old }()

	m := buildRendezvous(t)
	trace, err := Execute(m, 1)
	require.NoError(t, err)
	require.Len(t, trace.Steps, 1)

	step := trace.Steps[0]
	require.Equal(t, cs.Rendezvous, step.Kind)
	require.Equal(t, []byte{9, 0, 0, 0}, step.Payload, "Int 9 wire-encodes as little-endian int32")
	require.Contains(t, step.Format(), "payload=09000000")
}

// TestLoadScxmlModel exercises Load end-to-end against a minimal
// Convince-style document on disk: a single FSM process with one
// transition-less state, which deadlocks immediately.
func TestLoadScxmlModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.xml"), []byte(`
<specification>
	<model>
		<processList>
			<process id="p1" moc="fsm" path="p1.scxml"/>
		</processList>
	</model>
</specification>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.scxml"), []byte(`
<scxml name="p1" initial="s0">
	<state id="s0"/>
</scxml>`), 0o644))

	m, err := Load(filepath.Join(dir, "model.xml"))
	require.NoError(t, err)
	require.Equal(t, 1, m.System.NumProgramGraphs())
	require.Contains(t, Dump(m), "p1")

	trace, err := Execute(m, 1)
	require.NoError(t, err)
	require.True(t, trace.Deadlocked)
	require.Empty(t, trace.Steps)
}

// TestLoadRejectsMissingFile exercises Load's PhaseParse classification
// of an unreadable model path (the exit code 1).
func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.xml"))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, PhaseParse, loadErr.Phase)
}
