package cs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// buildSenderReceiver wires a sender PG (one silent-looping location
// that sends its counter value) and a receiver PG (one location that
// receives into a local variable), connected by a channel whose
// capacity is given by cap.
func buildSenderReceiver(t *testing.T, capacity int) (*ChannelSystem, PgID, PgID, pg.VarID) {
	t.Helper()

	senderB := pg.NewBuilder()
	sLoc := senderB.NewLocation()
	counter := senderB.NewVar(value.IntType)
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

	csB := NewBuilder()
	sID := csB.NewProgramGraph(senderPG)
	rID := csB.NewProgramGraph(receiverPG)
	ch := csB.NewChannel(value.IntType, capacity)
	csB.BindSend(sID, sendAct, ch, expr.Var[pg.VarID]{Name: counter, Declared: value.IntType}, nil)
	csB.BindReceive(rID, recvAct, ch, received)

	system, err := csB.Build()
	require.NoError(t, err)
	return system, sID, rID, received
}

func TestPossibleTransitionsRendezvousPairsSendAndReceive(t *testing.T) {
	system, sID, rID, received := buildSenderReceiver(t, 0)
	cfg := system.InitialConfiguration()

	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, Rendezvous, moves[0].Kind)

	next, err := system.Transition(cfg, moves[0])
	require.NoError(t, err)
	v, _ := next.ProgramGraph(rID).Vars.Get(received)
	assert.Equal(t, int32(0), v.Int())
	_ = sID
}

func TestBoundedChannelSendThenReceive(t *testing.T) {
	system, sID, rID, received := buildSenderReceiver(t, 1)
	cfg := system.InitialConfiguration()

	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)

	var sendMove Move
	found := false
	for _, m := range moves {
		if m.Primary.Pg == sID {
			sendMove = m
			found = true
		}
	}
	require.True(t, found, "sender must have an enabled local send move")

	afterSend, err := system.Transition(cfg, sendMove)
	require.NoError(t, err)
	assert.Equal(t, 1, afterSend.QueueLen(0))

	moves, err = system.PossibleTransitions(afterSend)
	require.NoError(t, err)

	var recvMove Move
	found = false
	for _, m := range moves {
		if m.Primary.Pg == rID {
			recvMove = m
			found = true
		}
	}
	require.True(t, found, "receiver must have an enabled local receive move once queue is non-empty")

	afterRecv, err := system.Transition(afterSend, recvMove)
	require.NoError(t, err)
	assert.Equal(t, 0, afterRecv.QueueLen(0))
	v, _ := afterRecv.ProgramGraph(rID).Vars.Get(received)
	assert.Equal(t, int32(0), v.Int())
}

func TestBoundedChannelSendBlocksWhenFull(t *testing.T) {
	system, sID, _, _ := buildSenderReceiver(t, 1)
	cfg := system.InitialConfiguration()

	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	var sendMove Move
	for _, m := range moves {
		if m.Primary.Pg == sID {
			sendMove = m
		}
	}
	full, err := system.Transition(cfg, sendMove)
	require.NoError(t, err)

	moves, err = system.PossibleTransitions(full)
	require.NoError(t, err)
	for _, m := range moves {
		assert.NotEqual(t, sID, m.Primary.Pg, "sender must not be able to send into a full channel")
	}
}

func TestDelayedSendAndMaximalProgress(t *testing.T) {
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

	csB := NewBuilder()
	sID := csB.NewProgramGraph(senderPG)
	rID := csB.NewProgramGraph(receiverPG)
	ch := csB.NewChannel(value.IntType, 1)
	csB.BindSend(sID, sendAct, ch,
		expr.Const[pg.VarID]{Value: value.IntVal(42)},
		expr.Const[pg.VarID]{Value: value.IntVal(5)},
	)
	csB.BindReceive(rID, recvAct, ch, received)
	system, err := csB.Build()
	require.NoError(t, err)

	cfg := system.InitialConfiguration()
	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	var sendMove Move
	for _, m := range moves {
		if m.Primary.Pg == sID {
			sendMove = m
		}
	}
	afterSend, err := system.Transition(cfg, sendMove)
	require.NoError(t, err)
	assert.Equal(t, 0, afterSend.QueueLen(0), "delayed send must not land in the channel queue immediately")
	require.Len(t, afterSend.Pending(), 1)
	assert.Equal(t, int64(5), afterSend.Pending()[0].DeliveryTime)

	moves, err = system.PossibleTransitions(afterSend)
	require.NoError(t, err)
	for _, m := range moves {
		assert.NotEqual(t, TimedReceive, m.Kind, "pending event is not yet due")
	}

	advanced, ok := system.AdvanceTime(afterSend)
	require.True(t, ok)
	assert.Equal(t, int64(5), advanced.Now())

	moves, err = system.PossibleTransitions(advanced)
	require.NoError(t, err)
	var timedMove Move
	found := false
	for _, m := range moves {
		if m.Kind == TimedReceive {
			timedMove = m
			found = true
		}
	}
	require.True(t, found, "due pending event must be reported as a timed receive move")

	delivered, err := system.Transition(advanced, timedMove)
	require.NoError(t, err)
	assert.Empty(t, delivered.Pending())
	v, _ := delivered.ProgramGraph(rID).Vars.Get(received)
	assert.Equal(t, int32(42), v.Int())
}

func TestAdvanceTimeReportsFalseWithNoPending(t *testing.T) {
	system, _, _, _ := buildSenderReceiver(t, 0)
	cfg := system.InitialConfiguration()
	_, ok := system.AdvanceTime(cfg)
	assert.False(t, ok)
}

func TestMovePayloadRendezvous(t *testing.T) {
	system, sID, _, _ := buildSenderReceiver(t, 0)
	cfg := system.InitialConfiguration()

	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)

	payload, ok := system.MovePayload(cfg, moves[0])
	require.True(t, ok)
	assert.Equal(t, int32(0), payload.Int())
	_ = sID
}

func TestMovePayloadBoundedSendAndReceive(t *testing.T) {
	system, sID, rID, _ := buildSenderReceiver(t, 1)
	cfg := system.InitialConfiguration()

	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	var sendMove Move
	for _, m := range moves {
		if m.Primary.Pg == sID {
			sendMove = m
		}
	}
	payload, ok := system.MovePayload(cfg, sendMove)
	require.True(t, ok)
	assert.Equal(t, int32(0), payload.Int())

	afterSend, err := system.Transition(cfg, sendMove)
	require.NoError(t, err)

	moves, err = system.PossibleTransitions(afterSend)
	require.NoError(t, err)
	var recvMove Move
	for _, m := range moves {
		if m.Primary.Pg == rID {
			recvMove = m
		}
	}
	payload, ok = system.MovePayload(afterSend, recvMove)
	require.True(t, ok)
	assert.Equal(t, int32(0), payload.Int())
}

func TestMovePayloadTimedReceive(t *testing.T) {
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

	csB := NewBuilder()
	sID := csB.NewProgramGraph(senderPG)
	rID := csB.NewProgramGraph(receiverPG)
	ch := csB.NewChannel(value.IntType, 1)
	csB.BindSend(sID, sendAct, ch,
		expr.Const[pg.VarID]{Value: value.IntVal(7)},
		expr.Const[pg.VarID]{Value: value.IntVal(3)},
	)
	csB.BindReceive(rID, recvAct, ch, received)
	system, err := csB.Build()
	require.NoError(t, err)

	cfg := system.InitialConfiguration()
	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	var sendMove Move
	for _, m := range moves {
		if m.Primary.Pg == sID {
			sendMove = m
		}
	}
	afterSend, err := system.Transition(cfg, sendMove)
	require.NoError(t, err)

	advanced, ok := system.AdvanceTime(afterSend)
	require.True(t, ok)

	moves, err = system.PossibleTransitions(advanced)
	require.NoError(t, err)
	var timedMove Move
	for _, m := range moves {
		if m.Kind == TimedReceive {
			timedMove = m
		}
	}

	payload, ok := system.MovePayload(advanced, timedMove)
	require.True(t, ok)
	assert.Equal(t, int32(7), payload.Int())
}

func TestMovePayloadSilentLocalMoveReportsFalse(t *testing.T) {
	b := pg.NewBuilder()
	loc := b.NewLocation()
	act := b.NewAction()
	b.AddTransition(loc, act, expr.Const[pg.VarID]{Value: value.BoolVal(true)}, loc)
	b.SetInitial(loc)
	graph, err := b.Build()
	require.NoError(t, err)

	csB := NewBuilder()
	csB.NewProgramGraph(graph)
	system, err := csB.Build()
	require.NoError(t, err)

	cfg := system.InitialConfiguration()
	moves, err := system.PossibleTransitions(cfg)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, LocalMove, moves[0].Kind)

	_, ok := system.MovePayload(cfg, moves[0])
	assert.False(t, ok, "a silent local move carries no payload")
}
