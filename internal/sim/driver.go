package sim

import (
	"encoding/hex"
	"fmt"

	"github.com/keb77/scan/internal/cs"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/wire"
)

// maxSteps bounds a single run so a misbehaving model (one that never
// deadlocks and never exhausts its pending events) cannot spin the
// driver forever; execute otherwise runs until no transition is
// enabled, with no inherent bound on a runaway model, so this cap is
// this driver's own safeguard, documented rather than silently applied.
var maxSteps = 1_000_000

// PgStep names one Program Graph's half of a chosen move, with its
// source-model name attached for diagnostics.
type PgStep struct {
	Pg     cs.PgID
	PgName string
	Action pg.ActionID
	To     pg.LocationID
}

// Step is one move Execute chose and applied.
type Step struct {
	Kind cs.MoveKind
	// Primary is always set. Partner is set only for a Rendezvous move,
	// naming the paired send/receive's other half.
	Primary PgStep
	Partner *PgStep
	// Payload is the wire-encoded value carried by this move (the
	// message sent over a channel, or the event delivered by a timed
	// receive), nil for a Silent local move that carries no value.
	Payload []byte
}

// Trace is the result of running one simulation to deadlock (or to the
// maxSteps safeguard).
type Trace struct {
	Steps      []Step
	Deadlocked bool
	Final      cs.Configuration
}

// Execute runs one simulation of m.System from its initial configuration
// until no transition is enabled, choosing uniformly among enabled
// moves with a seeded selector for reproducibility.
func Execute(m *Model, seed int64) (*Trace, error) {
	sel := newSelector(seed)
	cfg := m.System.InitialConfiguration()

	var steps []Step
	for i := 0; i < maxSteps; i++ {
		moves, err := m.System.PossibleTransitions(cfg)
		if err != nil {
			return nil, fmt.Errorf("possible transitions: %w", err)
		}

		if len(moves) == 0 {
			advanced, ok := m.System.AdvanceTime(cfg)
			if !ok {
				return &Trace{Steps: steps, Deadlocked: true, Final: cfg}, nil
			}
			cfg = advanced
			continue
		}

		mv := moves[sel.choose(len(moves))]
		payload, hasPayload := m.System.MovePayload(cfg, mv)
		next, err := m.System.Transition(cfg, mv)
		if err != nil {
			return nil, fmt.Errorf("transition: %w", err)
		}
		cfg = next

		step := stepFromMove(m, mv)
		if hasPayload {
			step.Payload = wire.Encode(nil, payload)
		}
		steps = append(steps, step)
	}

	return &Trace{Steps: steps, Deadlocked: false, Final: cfg}, nil
}

func stepFromMove(m *Model, mv cs.Move) Step {
	s := Step{Kind: mv.Kind, Primary: pgStepFrom(m, mv.Primary)}
	if mv.Partner != nil {
		partner := pgStepFrom(m, *mv.Partner)
		s.Partner = &partner
	}
	return s
}

func pgStepFrom(m *Model, pm cs.PgMove) PgStep {
	name, ok := m.Names[pm.Pg]
	if !ok {
		name = fmt.Sprintf("pg%d", pm.Pg)
	}
	return PgStep{Pg: pm.Pg, PgName: name, Action: pm.Action, To: pm.To}
}

// Format renders a Step as "<pg-name>: action <a> -> location <l>", adding
// the partner's half after a "<-rendezvous->" marker for a rendezvous move
// and appending the move's wire-encoded payload in hex when it carried one.
func (s Step) Format() string {
	var base string
	if s.Partner == nil {
		base = fmt.Sprintf("%s: action %d -> location %d", s.Primary.PgName, s.Primary.Action, s.Primary.To)
	} else {
		base = fmt.Sprintf("%s: action %d -> location %d  <-rendezvous->  %s: action %d -> location %d",
			s.Primary.PgName, s.Primary.Action, s.Primary.To,
			s.Partner.PgName, s.Partner.Action, s.Partner.To)
	}
	if len(s.Payload) == 0 {
		return base
	}
	return fmt.Sprintf("%s  payload=%s", base, hex.EncodeToString(s.Payload))
}
