package cs

import (
	"github.com/keb77/scan/internal/compile"
	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// commKey identifies one Program Graph action for the purpose of
// binding it to a channel operation.
type commKey struct {
	pg     PgID
	action pg.ActionID
}

// Builder accumulates Program Graphs, channels, and the channel
// bindings of their actions, then freezes an immutable *ChannelSystem.
// Once built, a Channel System's shape (its PGs, channels and the
// bindings between them) never changes; only a Configuration evolves
//.
type Builder struct {
	pgs      []*pg.ProgramGraph
	channels []Channel
	comms    map[commKey]CommAction
}

// NewBuilder creates an empty Channel System builder.
func NewBuilder() *Builder {
	return &Builder{comms: make(map[commKey]CommAction)}
}

// NewProgramGraph registers an already-built Program Graph and returns
// the PgID it is known by within this Channel System.
func (b *Builder) NewProgramGraph(g *pg.ProgramGraph) PgID {
	id := PgID(len(b.pgs))
	b.pgs = append(b.pgs, g)
	return id
}

// NewChannel declares a channel carrying values of the given type, with
// the given capacity (0 = rendezvous, k>0 = bounded FIFO of depth k).
func (b *Builder) NewChannel(carried value.Type, capacity int) ChannelID {
	id := ChannelID(len(b.channels))
	b.channels = append(b.channels, Channel{Carried: carried, Capacity: capacity})
	return id
}

// BindSend registers action on pg as a Send over channel, with payload
// evaluated against the sending PG's own variables. delay, if non-nil,
// makes this a delayed send.
func (b *Builder) BindSend(pgID PgID, action pg.ActionID, channel ChannelID, payload expr.Expr[pg.VarID], delay expr.Expr[pg.VarID]) *Builder {
	b.comms[commKey{pg: pgID, action: action}] = CommAction{
		Kind:    Send,
		Channel: channel,
		Payload: payload,
		Delay:   delay,
	}
	return b
}

// BindReceive registers action on pg as a Receive over channel, writing
// the delivered payload into target.
func (b *Builder) BindReceive(pgID PgID, action pg.ActionID, channel ChannelID, target pg.VarID) *Builder {
	b.comms[commKey{pg: pgID, action: action}] = CommAction{
		Kind:    Receive,
		Channel: channel,
		Target:  target,
	}
	return b
}

// Build validates channel bindings (payload/target types must match the
// channel's carried type) and freezes an immutable *ChannelSystem.
func (b *Builder) Build() (*ChannelSystem, error) {
	for key, comm := range b.comms {
		if int(key.pg) >= len(b.pgs) {
			return nil, newErr(UnknownProgramGraph, "binding references unknown program graph %d", key.pg)
		}
		if int(comm.Channel) >= len(b.channels) {
			return nil, newErr(UnknownChannel, "binding references unknown channel %d", comm.Channel)
		}
		ch := b.channels[comm.Channel]
		g := b.pgs[key.pg]
		switch comm.Kind {
		case Send:
			payloadType, err := expr.TypeOf(comm.Payload)
			if err != nil {
				return nil, err
			}
			if !payloadType.Equal(ch.Carried) {
				return nil, newErr(TypeMismatch, "send on channel %d: payload type %s does not match carried type %s", comm.Channel, payloadType, ch.Carried)
			}
		case Receive:
			targetType, ok := g.VarType(comm.Target)
			if !ok {
				return nil, newErr(UnknownProgramGraph, "receive binds to undeclared variable %d on program graph %d", comm.Target, key.pg)
			}
			if !targetType.Equal(ch.Carried) {
				return nil, newErr(TypeMismatch, "receive on channel %d: target type %s does not match carried type %s", comm.Channel, targetType, ch.Carried)
			}
		}
	}

	comms := make(map[commKey]compiledComm, len(b.comms))
	for key, comm := range b.comms {
		cc := compiledComm{kind: comm.Kind, channel: comm.Channel, target: comm.Target}
		if comm.Payload != nil {
			cc.payload = compile.Compile(comm.Payload)
		}
		if comm.Delay != nil {
			cc.delay = compile.Compile(comm.Delay)
		}
		comms[key] = cc
	}

	return &ChannelSystem{
		pgs:      append([]*pg.ProgramGraph(nil), b.pgs...),
		channels: append([]Channel(nil), b.channels...),
		comms:    comms,
	}, nil
}

// compiledComm is a validated, compiled CommAction.
type compiledComm struct {
	kind    CommKind
	channel ChannelID
	payload compile.Evaluator[pg.VarID]
	delay   compile.Evaluator[pg.VarID]
	target  pg.VarID
}

// ChannelSystem is an immutable, validated composition of Program
// Graphs over typed channels.
type ChannelSystem struct {
	pgs      []*pg.ProgramGraph
	channels []Channel
	comms    map[commKey]compiledComm
}

func (cs *ChannelSystem) commFor(id PgID, action pg.ActionID) (compiledComm, bool) {
	cc, ok := cs.comms[commKey{pg: id, action: action}]
	return cc, ok
}

// NumProgramGraphs reports how many Program Graphs this Channel System
// composes.
func (cs *ChannelSystem) NumProgramGraphs() int { return len(cs.pgs) }

// NumChannels reports how many channels this Channel System declares.
func (cs *ChannelSystem) NumChannels() int { return len(cs.channels) }

// Channel returns the declaration of channel id.
func (cs *ChannelSystem) Channel(id ChannelID) Channel { return cs.channels[id] }
