// Package cs implements the Channel System: a fixed, frozen set of
// Program Graphs composed over typed channels, a global clock and a
// pending-event queue for delayed sends.
//
// Naming follows the ChannelSystem / ChannelSystemBuilder / CsAction /
// CsError vocabulary, translated into Go's PgID/ChannelID/CommAction/
// Error terms.
package cs

import (
	"errors"
	"fmt"

	"github.com/keb77/scan/internal/expr"
	"github.com/keb77/scan/internal/pg"
	"github.com/keb77/scan/internal/value"
)

// PgID identifies one of the Channel System's participating Program
// Graphs.
type PgID int

// ChannelID identifies one of the Channel System's channels.
type ChannelID int

// CommKind classifies how a Program Graph action interacts with a
// channel: Silent actions have no channel interaction,
// Send and Receive bind an action to a specific channel.
type CommKind int

const (
	Silent CommKind = iota
	Send
	Receive
)

// CommAction describes the channel interaction bound to one
// (PgID, pg.ActionID) pair. A Program Graph action not registered here is
// treated as Silent.
type CommAction struct {
	Kind    CommKind
	Channel ChannelID
	// Payload is the value-expression sent, evaluated against the
	// sending PG's pre-step valuation. Only meaningful for Send.
	Payload expr.Expr[pg.VarID]
	// Delay, if non-nil, makes a Send a delayed send: the payload is
	// inserted into the pending queue at now + eval(Delay) rather than
	// delivered immediately.
	Delay expr.Expr[pg.VarID]
	// Target is the variable a Receive writes the delivered payload
	// into. Only meaningful for Receive.
	Target pg.VarID
}

// Channel is a typed, capacity-bounded (or rendezvous, capacity 0)
// communication channel.
type Channel struct {
	Carried  value.Type
	Capacity int
}

// ErrorKind classifies a Channel System build or runtime failure.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	UnknownProgramGraph
	UnknownChannel
	NotEnabled
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case UnknownProgramGraph:
		return "unknown program graph"
	case UnknownChannel:
		return "unknown channel"
	case NotEnabled:
		return "move not enabled"
	default:
		return "channel system error"
	}
}

// Error is the error type Builder.Build and Transition return.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is a *Error of the given kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
