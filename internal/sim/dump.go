package sim

import (
	"fmt"
	"strings"

	"github.com/keb77/scan/internal/cs"
)

// Dump renders m as a human-readable description of its built Channel
// System: the validate subcommand "emit[s] a human-readable
// dump" on success. The original CLI dumps a Rust `{:#?}` Debug
// representation of the whole parser/CS tree (src/main.rs); SCAN dumps
// the same information — program graph count, names, channel table — in
// a form that does not require exposing internal field layout.
func Dump(m *Model) string {
	var b strings.Builder
	sys := m.System

	fmt.Fprintf(&b, "Channel System: %d program graph(s), %d channel(s)\n",
		sys.NumProgramGraphs(), sys.NumChannels())

	for i := 0; i < sys.NumProgramGraphs(); i++ {
		pgID := cs.PgID(i)
		name, ok := m.Names[pgID]
		if !ok {
			name = fmt.Sprintf("pg%d", i)
		}
		fmt.Fprintf(&b, "  [%d] %s\n", i, name)
	}

	for i := 0; i < sys.NumChannels(); i++ {
		ch := sys.Channel(cs.ChannelID(i))
		kind := "rendezvous"
		if ch.Capacity > 0 {
			kind = fmt.Sprintf("bounded(%d)", ch.Capacity)
		}
		fmt.Fprintf(&b, "  channel %d: %s carrying %s\n", i, kind, ch.Carried)
	}

	return b.String()
}
