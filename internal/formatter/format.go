// Package formatter renders cleaned events as narrative prose lines.
package formatter

import (
	"strings"

	"github.com/convocations/convocations/internal/logline"
)

// Line renders a single event per spec.md §4.F. Say channels are
// always quoted attribution; emote channels are rendered as speaker
// plus body verbatim, since the log already carries whatever
// capitalization and quoting the emote needs and the formatter does
// not attempt English morphology.
func Line(speaker string, channel logline.Channel, body string) string {
	switch channel {
	case logline.ChannelSay:
		return speaker + ` says, "` + body + `"`
	default:
		return speaker + " " + body
	}
}

// Document joins rendered lines with a single newline separator and a
// required trailing newline.
func Document(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
