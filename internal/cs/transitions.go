package cs

import (
	"github.com/keb77/scan/internal/compile"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// MoveKind classifies a Channel System move.
type MoveKind int

const (
	// LocalMove is a silent step, or a send/receive on a bounded channel
	// that only needs the one Program Graph to act.
	LocalMove MoveKind = iota
	// Rendezvous is a paired send/receive on a capacity-0 channel: both
	// Program Graphs step atomically together.
	Rendezvous
	// TimedReceive delivers a due pending event.
	TimedReceive
)

// PgMove names one Program Graph's half of a Channel System move.
type PgMove struct {
	Pg     PgID
	Action pg.ActionID
	To     pg.LocationID
}

// Move is one element of PossibleTransitions' result: a fully resolved,
// ready-to-apply Channel System move.
type Move struct {
	Kind    MoveKind
	Channel ChannelID
	Primary PgMove
	// Partner is set only for Rendezvous: the other side of the pairing.
	Partner *PgMove
	// pendingSeq identifies, for a TimedReceive, exactly which pending
	// event is being delivered (pending events for the same channel can
	// share a delivery time; insertion order disambiguates them).
	pendingSeq int64
}

func pgEnv(c pg.Configuration) compile.Env[pg.VarID] {
	return func(v pg.VarID) value.Val {
		val, _ := c.Vars.Get(v)
		return val
	}
}

// PossibleTransitions enumerates every move enabled from cfg: local
// silent/channel moves (PG ids ascending, then per-PG transition
// insertion order,), rendezvous pairings grouped by
// channel, then due timed receives in pending-queue order. The ordering
// is deterministic so that driving the same Channel System from the same
// configuration with the same RNG seed always explores moves in the same
// sequence.
func (cs *ChannelSystem) PossibleTransitions(cfg Configuration) ([]Move, error) {
	var local []Move
	// rendezvousSends/Receives group pending rendezvous halves by channel,
	// each slice in PG-ascending, action-insertion order.
	rendezvousSends := make(map[ChannelID][]PgMove)
	rendezvousReceives := make(map[ChannelID][]PgMove)

	for i, g := range cs.pgs {
		pgID := PgID(i)
		enabled, err := g.Enabled(cfg.pgCfgs[pgID])
		if err != nil {
			return nil, err
		}
		for _, m := range enabled {
			comm, hasComm := cs.commFor(pgID, m.Action)
			pm := PgMove{Pg: pgID, Action: m.Action, To: m.To}
			switch {
			case !hasComm || comm.kind == Silent:
				local = append(local, Move{Kind: LocalMove, Primary: pm})
			case comm.kind == Send:
				ch := cs.channels[comm.channel]
				if ch.Capacity == 0 {
					rendezvousSends[comm.channel] = append(rendezvousSends[comm.channel], pm)
				} else if len(cfg.queues[comm.channel]) < ch.Capacity {
					local = append(local, Move{Kind: LocalMove, Channel: comm.channel, Primary: pm})
				}
			case comm.kind == Receive:
				ch := cs.channels[comm.channel]
				if ch.Capacity == 0 {
					rendezvousReceives[comm.channel] = append(rendezvousReceives[comm.channel], pm)
				} else if len(cfg.queues[comm.channel]) > 0 {
					local = append(local, Move{Kind: LocalMove, Channel: comm.channel, Primary: pm})
				}
			}
		}
	}

	var rendezvous []Move
	for ch := ChannelID(0); int(ch) < len(cs.channels); ch++ {
		sends, receives := rendezvousSends[ch], rendezvousReceives[ch]
		for _, s := range sends {
			for _, r := range receives {
				sCopy, rCopy := s, r
				rendezvous = append(rendezvous, Move{Kind: Rendezvous, Channel: ch, Primary: sCopy, Partner: &rCopy})
			}
		}
	}

	var timed []Move
	for _, ev := range cfg.pending {
		if ev.DeliveryTime > cfg.now {
			continue
		}
		for i, g := range cs.pgs {
			pgID := PgID(i)
			enabled, err := g.Enabled(cfg.pgCfgs[pgID])
			if err != nil {
				return nil, err
			}
			for _, m := range enabled {
				comm, hasComm := cs.commFor(pgID, m.Action)
				if !hasComm || comm.kind != Receive || comm.channel != ev.Channel {
					continue
				}
				timed = append(timed, Move{
					Kind:       TimedReceive,
					Channel:    ev.Channel,
					Primary:    PgMove{Pg: pgID, Action: m.Action, To: m.To},
					pendingSeq: ev.seq,
				})
			}
		}
	}

	all := make([]Move, 0, len(local)+len(rendezvous)+len(timed))
	all = append(all, local...)
	all = append(all, rendezvous...)
	all = append(all, timed...)
	return all, nil
}

// AdvanceTime implements the maximal-progress/urgency rule: when no
// non-timed move is available, the clock jumps forward to
// the smallest delivery_time among pending events, making the event(s)
// at that time due. It reports ok=false when there is nothing pending to
// advance to.
func (cs *ChannelSystem) AdvanceTime(cfg Configuration) (Configuration, bool) {
	if len(cfg.pending) == 0 {
		return cfg, false
	}
	next := cfg.clone()
	earliest := cfg.pending[0].DeliveryTime
	if earliest > next.now {
		next.now = earliest
	}
	return next, true
}

// Transition applies mv to cfg, returning the resulting Configuration.
// mv must have come from PossibleTransitions(cfg); applying a stale or
// fabricated Move is a programming error and returns a NotEnabled Error.
func (cs *ChannelSystem) Transition(cfg Configuration, mv Move) (Configuration, error) {
	switch mv.Kind {
	case LocalMove:
		return cs.applyLocal(cfg, mv)
	case Rendezvous:
		return cs.applyRendezvous(cfg, mv)
	case TimedReceive:
		return cs.applyTimedReceive(cfg, mv)
	default:
		return Configuration{}, newErr(NotEnabled, "unknown move kind")
	}
}

func (cs *ChannelSystem) applyLocal(cfg Configuration, mv Move) (Configuration, error) {
	next := cfg.clone()
	pgID := mv.Primary.Pg
	g := cs.pgs[pgID]
	pre := cfg.pgCfgs[pgID]
	comm, hasComm := cs.commFor(pgID, mv.Primary.Action)

	if !hasComm || comm.kind == Silent {
		stepped, err := g.Step(pre, mv.Primary.Action, mv.Primary.To)
		if err != nil {
			return Configuration{}, err
		}
		next.pgCfgs[pgID] = stepped
		return next, nil
	}

	if comm.kind == Send {
		payload, err := comm.payload(pgEnv(pre))
		if err != nil {
			return Configuration{}, err
		}
		stepped, err := g.Step(pre, mv.Primary.Action, mv.Primary.To)
		if err != nil {
			return Configuration{}, err
		}
		next.pgCfgs[pgID] = stepped
		if comm.delay != nil {
			delayVal, err := comm.delay(pgEnv(pre))
			if err != nil {
				return Configuration{}, err
			}
			if delayVal.Kind() != value.Int {
				return Configuration{}, newErr(TypeMismatch, "delay expression did not evaluate to Int")
			}
			next.insertPending(comm.channel, payload, next.now+int64(delayVal.Int()))
		} else {
			next.queues[comm.channel] = append(append([]value.Val(nil), next.queues[comm.channel]...), payload)
		}
		return next, nil
	}

	// Receive on a bounded channel.
	queue := next.queues[comm.channel]
	if len(queue) == 0 {
		return Configuration{}, newErr(NotEnabled, "receive on channel %d with empty queue", comm.channel)
	}
	payload := queue[0]
	next.queues[comm.channel] = append([]value.Val(nil), queue[1:]...)
	stepped, err := g.Step(pre, mv.Primary.Action, mv.Primary.To)
	if err != nil {
		return Configuration{}, err
	}
	stepped.Vars.Put(comm.target, payload)
	next.pgCfgs[pgID] = stepped
	return next, nil
}

func (cs *ChannelSystem) applyRendezvous(cfg Configuration, mv Move) (Configuration, error) {
	if mv.Partner == nil {
		return Configuration{}, newErr(NotEnabled, "rendezvous move missing partner")
	}
	primaryComm, _ := cs.commFor(mv.Primary.Pg, mv.Primary.Action)
	partnerComm, _ := cs.commFor(mv.Partner.Pg, mv.Partner.Action)

	var sendSide, recvSide PgMove
	var sendComm, recvComm compiledComm
	switch {
	case primaryComm.kind == Send && partnerComm.kind == Receive:
		sendSide, recvSide = mv.Primary, *mv.Partner
		sendComm, recvComm = primaryComm, partnerComm
	case primaryComm.kind == Receive && partnerComm.kind == Send:
		sendSide, recvSide = *mv.Partner, mv.Primary
		sendComm, recvComm = partnerComm, primaryComm
	default:
		return Configuration{}, newErr(NotEnabled, "rendezvous pairing is not one send and one receive")
	}

	next := cfg.clone()
	payload, err := sendComm.payload(pgEnv(cfg.pgCfgs[sendSide.Pg]))
	if err != nil {
		return Configuration{}, err
	}
	steppedSend, err := cs.pgs[sendSide.Pg].Step(cfg.pgCfgs[sendSide.Pg], sendSide.Action, sendSide.To)
	if err != nil {
		return Configuration{}, err
	}
	steppedRecv, err := cs.pgs[recvSide.Pg].Step(cfg.pgCfgs[recvSide.Pg], recvSide.Action, recvSide.To)
	if err != nil {
		return Configuration{}, err
	}
	steppedRecv.Vars.Put(recvComm.target, payload)

	next.pgCfgs[sendSide.Pg] = steppedSend
	next.pgCfgs[recvSide.Pg] = steppedRecv
	return next, nil
}

func (cs *ChannelSystem) applyTimedReceive(cfg Configuration, mv Move) (Configuration, error) {
	next := cfg.clone()
	idx := -1
	for i, ev := range next.pending {
		if ev.seq == mv.pendingSeq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Configuration{}, newErr(NotEnabled, "pending event for timed receive no longer present")
	}
	ev := next.popPending(idx)

	pgID := mv.Primary.Pg
	g := cs.pgs[pgID]
	stepped, err := g.Step(cfg.pgCfgs[pgID], mv.Primary.Action, mv.Primary.To)
	if err != nil {
		return Configuration{}, err
	}
	comm, _ := cs.commFor(pgID, mv.Primary.Action)
	stepped.Vars.Put(comm.target, ev.Payload)
	next.pgCfgs[pgID] = stepped
	return next, nil
}

// MovePayload reports the value.Val carried by mv, for diagnostic
// rendering of a chosen move (see internal/wire). It reads cfg without
// mutating it and mirrors Transition's own payload derivation for each
// MoveKind, so ok is true exactly when mv moves a value over a channel:
// a Silent local move (no CommAction bound to the action) reports
// ok=false.
func (cs *ChannelSystem) MovePayload(cfg Configuration, mv Move) (value.Val, bool) {
	switch mv.Kind {
	case LocalMove:
		comm, hasComm := cs.commFor(mv.Primary.Pg, mv.Primary.Action)
		if !hasComm {
			return value.Val{}, false
		}
		switch comm.kind {
		case Send:
			payload, err := comm.payload(pgEnv(cfg.pgCfgs[mv.Primary.Pg]))
			if err != nil {
				return value.Val{}, false
			}
			return payload, true
		case Receive:
			queue := cfg.queues[comm.channel]
			if len(queue) == 0 {
				return value.Val{}, false
			}
			return queue[0], true
		default:
			return value.Val{}, false
		}

	case Rendezvous:
		if mv.Partner == nil {
			return value.Val{}, false
		}
		primaryComm, _ := cs.commFor(mv.Primary.Pg, mv.Primary.Action)
		sendSide := mv.Primary
		sendComm := primaryComm
		if primaryComm.kind != Send {
			sendSide = *mv.Partner
			sendComm, _ = cs.commFor(mv.Partner.Pg, mv.Partner.Action)
		}
		payload, err := sendComm.payload(pgEnv(cfg.pgCfgs[sendSide.Pg]))
		if err != nil {
			return value.Val{}, false
		}
		return payload, true

	case TimedReceive:
		for _, ev := range cfg.pending {
			if ev.seq == mv.pendingSeq {
				return ev.Payload, true
			}
		}
		return value.Val{}, false

	default:
		return value.Val{}, false
	}
}
