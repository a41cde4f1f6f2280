package board

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// BuildReport renders a plain-text summary of the board: every card and
// every string with its control-point count and endpoints. The same text is
// what the C key copies to the clipboard.
func BuildReport(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Case Board ===\n")
	fmt.Fprintf(&b, "cards=%d connections=%d\n\n", len(s.cards), len(s.mgr.conns))

	for _, c := range s.cards {
		fmt.Fprintf(&b, "card %q at (%.0f,%.0f) size (%.0f,%.0f)\n",
			c.Title, c.Pos().X, c.Pos().Y, c.Size().X, c.Size().Y)
	}
	if len(s.cards) > 0 {
		b.WriteString("\n")
	}
	for _, c := range s.mgr.conns {
		a := c.srcAnchor()
		z := c.dstAnchor()
		fmt.Fprintf(&b, "string %s: (%.0f,%.0f) -> (%.0f,%.0f), %d control point(s)\n",
			c.Label(), a.X, a.Y, z.X, z.Y, len(c.points))
	}
	return b.String()
}

// CopyReport puts the board summary on the system clipboard.
func CopyReport(s *Session) error {
	return clipboard.WriteAll(BuildReport(s))
}
