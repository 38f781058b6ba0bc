package cs

import (
	"sort"

	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// PendingEvent is a delayed send waiting in a channel's pending queue,
// eligible for delivery once DeliveryTime <= a Configuration's Now
//.
type PendingEvent struct {
	Channel      ChannelID
	Payload      value.Val
	DeliveryTime int64
	seq          int64
}

// Configuration is a Channel System's complete runtime state: every
// participating Program Graph's own configuration, every bounded
// channel's FIFO contents, the pending-event queue, and the global
// clock.
type Configuration struct {
	pgCfgs  []pg.Configuration
	queues  [][]value.Val
	pending []PendingEvent
	now     int64
	nextSeq int64
}

// InitialConfiguration builds the starting Configuration: every Program
// Graph at its own initial configuration, every channel queue empty, no
// pending events, clock at zero.
func (cs *ChannelSystem) InitialConfiguration() Configuration {
	pgCfgs := make([]pg.Configuration, len(cs.pgs))
	for i, g := range cs.pgs {
		pgCfgs[i] = g.InitialConfiguration()
	}
	queues := make([][]value.Val, len(cs.channels))
	return Configuration{pgCfgs: pgCfgs, queues: queues}
}

// Now reports the Channel System's current global clock value.
func (cfg Configuration) Now() int64 { return cfg.now }

// ProgramGraph returns the current configuration of the PgID'th Program
// Graph.
func (cfg Configuration) ProgramGraph(id PgID) pg.Configuration { return cfg.pgCfgs[id] }

// QueueLen reports the current number of buffered values in channel id
// (always 0 for a rendezvous channel, which never buffers).
func (cfg Configuration) QueueLen(id ChannelID) int { return len(cfg.queues[id]) }

// Pending returns a snapshot of the pending-event queue, ordered by
// delivery time, ties broken by insertion order.
func (cfg Configuration) Pending() []PendingEvent {
	return append([]PendingEvent(nil), cfg.pending...)
}

func (cfg Configuration) clone() Configuration {
	next := Configuration{
		pgCfgs:  make([]pg.Configuration, len(cfg.pgCfgs)),
		queues:  make([][]value.Val, len(cfg.queues)),
		pending: append([]PendingEvent(nil), cfg.pending...),
		now:     cfg.now,
		nextSeq: cfg.nextSeq,
	}
	copy(next.pgCfgs, cfg.pgCfgs)
	for i, q := range cfg.queues {
		next.queues[i] = append([]value.Val(nil), q...)
	}
	return next
}

// insertPending inserts a new pending event keeping the queue ordered by
// (DeliveryTime, insertion order),.
func (cfg *Configuration) insertPending(channel ChannelID, payload value.Val, deliveryTime int64) {
	ev := PendingEvent{Channel: channel, Payload: payload, DeliveryTime: deliveryTime, seq: cfg.nextSeq}
	cfg.nextSeq++
	cfg.pending = append(cfg.pending, ev)
	sort.SliceStable(cfg.pending, func(i, j int) bool {
		if cfg.pending[i].DeliveryTime != cfg.pending[j].DeliveryTime {
			return cfg.pending[i].DeliveryTime < cfg.pending[j].DeliveryTime
		}
		return cfg.pending[i].seq < cfg.pending[j].seq
	})
}

// popPending removes and returns the pending event at index i.
func (cfg *Configuration) popPending(i int) PendingEvent {
	ev := cfg.pending[i]
	cfg.pending = append(cfg.pending[:i], cfg.pending[i+1:]...)
	return ev
}
