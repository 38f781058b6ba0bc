package bt

import (
	"fmt"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/result"
	"github.com/keb77/scan/internal/value"
)

// Result encodes the tick_return enumeration {SUCCESS, RUNNING, FAILURE}
// as the Int ordinals every tick_return channel carries. The ordering
// has no significance beyond distinguishing the three cases.
type Result int32

const (
	ResultSuccess Result = 0
	ResultRunning Result = 1
	ResultFailure Result = 2
)

// Channels is the tick_call/tick_return channel-pair registry shared by
// every leaf across one or more behavior trees lowered onto the same
// *cs.Builder. It is exported so a composing loader (the outer
// <processList>) can bind an FSM process's own send/receive actions to
// the same channel IDs when that FSM implements the skill behind a
// leaf's ID, the way internal/frontend/scxml.EventChannels is shared
// across every FSM process on one Channel System.
type Channels struct {
	calls   map[string]cs.ChannelID
	returns map[string]cs.ChannelID
}

// NewChannels creates an empty tick channel registry.
func NewChannels() *Channels {
	return &Channels{
		calls:   make(map[string]cs.ChannelID),
		returns: make(map[string]cs.ChannelID),
	}
}

// TickCall returns the tick_call channel for leaf id, declaring it
// (capacity 1, carrying Bool) on first use.
func (c *Channels) TickCall(csb *cs.Builder, id string) cs.ChannelID {
	if ch, ok := c.calls[id]; ok {
		return ch
	}
	ch := csb.NewChannel(value.BoolType, 1)
	c.calls[id] = ch
	return ch
}

// TickReturn returns the tick_return channel for leaf id, declaring it
// (capacity 1, carrying Int) on first use.
func (c *Channels) TickReturn(csb *cs.Builder, id string) cs.ChannelID {
	if ch, ok := c.returns[id]; ok {
		return ch
	}
	ch := csb.NewChannel(value.IntType, 1)
	c.returns[id] = ch
	return ch
}

// pendingComm defers a BindSend/BindReceive call until the Program
// Graph under construction has been built and registered with the
// Channel System builder, mirroring
// internal/frontend/scxml.lower.go's pendingComm: cs.Builder.BindSend/
// BindReceive need a concrete cs.PgID, which only exists after
// pg.Builder.Build and cs.Builder.NewProgramGraph both return.
type pendingComm struct {
	action  pg.ActionID
	isSend  bool
	channel cs.ChannelID
	target  pg.VarID
}

// LowerBt compiles tree into a single looping *pg.ProgramGraph and
// registers it on csb, sharing channels with any other behavior tree or
// skill-implementing FSM process already lowered onto csb.
//
// The compiled graph loops at an idle location: each pass re-evaluates
// the whole tree from its root (the "reactive" part of reactive
// sequence/fallback — a tick never resumes a paused child, it restarts
// from the top every time), short-circuiting Sequence on the first
// non-SUCCESS child and Fallback on the first non-FAILURE child, and
// returning straight to idle on SUCCESS, FAILURE or RUNNING alike: the
// tree does not expose its own tick's outcome anywhere, since nothing
// here models one behavior tree acting as another's leaf. What drives
// the idle-to-root retick itself is left open; this lowering resolves
// it by making the retick an unconditional, always-enabled transition,
// so the tree ticks as fast as the statistical simulation's move
// selection schedules it rather than waiting on an external tick
// generator.
func LowerBt(tree *Bt, csb *cs.Builder, channels *Channels) (cs.PgID, error) {
	b := pg.NewBuilder()
	resultVar := b.NewVar(value.IntType)

	idle := b.NewLocation()
	b.SetInitial(idle)

	var pending []pendingComm
	entry, err := compileNode(tree.Root, b, &pending, csb, channels, resultVar, idle, idle, idle).Get()
	if err != nil {
		return 0, err
	}

	retick := b.NewAction()
	b.AddTransition(idle, retick, exprTrue(), entry)

	graph, err := b.Build()
	if err != nil {
		return 0, fmt.Errorf("bt: %w", err)
	}
	pgID := csb.NewProgramGraph(graph)

	for _, pc := range pending {
		if pc.isSend {
			csb.BindSend(pgID, pc.action, pc.channel, exprTrue(), nil)
		} else {
			csb.BindReceive(pgID, pc.action, pc.channel, pc.target)
		}
	}
	return pgID, nil
}

// compileNode compiles node and wires its three outcomes to the given
// continuation locations, returning the location at which ticking node
// begins. Recursive calls thread a result.Result so a child's failure
// (an unknown node type, nested arbitrarily deep under Sequence/
// Fallback) propagates straight to the nearest caller that unwraps it,
// instead of an explicit err check at every recursion level.
func compileNode(node Node, b *pg.Builder, pending *[]pendingComm, csb *cs.Builder, channels *Channels, resultVar pg.VarID, onSuccess, onFailure, onRunning pg.LocationID) result.Result[pg.LocationID] {
	switch n := node.(type) {
	case Action:
		return result.Value(compileLeaf(n.ID, b, pending, csb, channels, resultVar, onSuccess, onFailure, onRunning))
	case Condition:
		return result.Value(compileLeaf(n.ID, b, pending, csb, channels, resultVar, onSuccess, onFailure, onRunning))
	case Sequence:
		return compileSequence(n.Children, b, pending, csb, channels, resultVar, onSuccess, onFailure, onRunning)
	case Fallback:
		return compileFallback(n.Children, b, pending, csb, channels, resultVar, onSuccess, onFailure, onRunning)
	default:
		return result.Error[pg.LocationID](fmt.Errorf("bt: unknown node type %T", node))
	}
}

// compileLeaf wires one Action/Condition tick: send tick_call, receive
// tick_return into resultVar, then branch on resultVar to the right
// continuation.
func compileLeaf(id string, b *pg.Builder, pending *[]pendingComm, csb *cs.Builder, channels *Channels, resultVar pg.VarID, onSuccess, onFailure, onRunning pg.LocationID) pg.LocationID {
	enter := b.NewLocation()
	awaiting := b.NewLocation()
	gotResult := b.NewLocation()

	callCh := channels.TickCall(csb, id)
	sendAction := b.NewAction()
	b.AddTransition(enter, sendAction, exprTrue(), awaiting)
	*pending = append(*pending, pendingComm{action: sendAction, isSend: true, channel: callCh})

	returnCh := channels.TickReturn(csb, id)
	recvAction := b.NewAction()
	b.AddTransition(awaiting, recvAction, exprTrue(), gotResult)
	*pending = append(*pending, pendingComm{action: recvAction, isSend: false, channel: returnCh, target: resultVar})

	wireResultBranch(b, gotResult, resultVar, onSuccess, onFailure, onRunning)
	return enter
}

// wireResultBranch adds the three guarded, effect-less transitions out
// of a "just received a tick_return" location that route to the
// continuation matching resultVar's value.
func wireResultBranch(b *pg.Builder, from pg.LocationID, resultVar pg.VarID, onSuccess, onFailure, onRunning pg.LocationID) {
	succAct := b.NewAction()
	b.AddTransition(from, succAct, resultEquals(resultVar, ResultSuccess), onSuccess)
	failAct := b.NewAction()
	b.AddTransition(from, failAct, resultEquals(resultVar, ResultFailure), onFailure)
	runAct := b.NewAction()
	b.AddTransition(from, runAct, resultEquals(resultVar, ResultRunning), onRunning)
}

// compileSequence chains children so that child i's success continues
// into child i+1, while any child's failure or running short-circuits
// straight to the sequence's own failure/running continuation.
func compileSequence(children []Node, b *pg.Builder, pending *[]pendingComm, csb *cs.Builder, channels *Channels, resultVar pg.VarID, onSuccess, onFailure, onRunning pg.LocationID) result.Result[pg.LocationID] {
	next := result.Value(onSuccess)
	for i := len(children) - 1; i >= 0; i-- {
		nextLoc, err := next.Get()
		if err != nil {
			return next
		}
		next = compileNode(children[i], b, pending, csb, channels, resultVar, nextLoc, onFailure, onRunning)
	}
	return next
}

// compileFallback chains children so that child i's failure continues
// into child i+1, while any child's success or running short-circuits
// straight to the fallback's own success/running continuation.
func compileFallback(children []Node, b *pg.Builder, pending *[]pendingComm, csb *cs.Builder, channels *Channels, resultVar pg.VarID, onSuccess, onFailure, onRunning pg.LocationID) result.Result[pg.LocationID] {
	next := result.Value(onFailure)
	for i := len(children) - 1; i >= 0; i-- {
		nextLoc, err := next.Get()
		if err != nil {
			return next
		}
		next = compileNode(children[i], b, pending, csb, channels, resultVar, onSuccess, nextLoc, onRunning)
	}
	return next
}

func exprTrue() expr.Expr[pg.VarID] {
	return expr.Const[pg.VarID]{Value: value.BoolVal(true)}
}

func resultEquals(v pg.VarID, want Result) expr.Expr[pg.VarID] {
	return expr.Equal[pg.VarID]{
		Lhs: expr.Var[pg.VarID]{Name: v, Declared: value.IntType},
		Rhs: expr.Const[pg.VarID]{Value: value.IntVal(int32(want))},
	}
}
