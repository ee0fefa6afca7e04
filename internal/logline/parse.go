// Package logline parses raw chat-client transcript lines into
// structured events and fuses continuation lines back into the
// message they belong to.
package logline

import (
	"regexp"
	"strings"
	"time"
)

// Channel identifies the kind of chat line a raw log line came from.
type Channel int

const (
	ChannelSay Channel = iota
	ChannelEmote
	ChannelOther
)

func (c Channel) String() string {
	switch c {
	case ChannelSay:
		return "say"
	case ChannelEmote:
		return "emote"
	default:
		return "other"
	}
}

// Event is a single logical chat message once its raw line (or lines,
// after Reassemble) have been parsed.
type Event struct {
	Timestamp time.Time
	Channel   Channel
	Speaker   string
	Body      string
}

const timestampLayout = "2006-01-02 15:04:05"

// lineExpr matches "[local_timestamp] [CHANNEL] Speaker: body". The
// body group intentionally does not strip a leading separator space —
// Reassemble inspects it to detect continuation markers.
var lineExpr = regexp.MustCompile(`^\[([^\]]+)\]\s*\[([^\]]+)\]\s*([^:\]]*):(.*)$`)

// Parse consumes a raw transcript, tolerating invalid UTF-8 sequences
// by replacement, and returns one Event per well-formed line. Lines
// that don't match the recognized shape (including ones with an
// unparseable timestamp) are silently discarded; a malformed line
// never halts the parse. Output preserves source order.
func Parse(raw []byte, loc *time.Location) []Event {
	text := strings.ToValidUTF8(string(raw), "�")
	lines := strings.Split(text, "\n")

	events := make([]Event, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if ev, ok := parseLine(line, loc); ok {
			events = append(events, ev)
		}
	}
	return events
}

func parseLine(line string, loc *time.Location) (Event, bool) {
	m := lineExpr.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	ts, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(m[1]), loc)
	if err != nil {
		return Event{}, false
	}

	return Event{
		Timestamp: ts.UTC(),
		Channel:   parseChannel(m[2]),
		Speaker:   strings.TrimSpace(m[3]),
		Body:      m[4],
	}, true
}

func parseChannel(tag string) Channel {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "SAY":
		return ChannelSay
	case "EMOTE":
		return ChannelEmote
	default:
		return ChannelOther
	}
}

// FilterRoleplay drops every event whose channel is not Say or Emote,
// per the "keep only say/emote" responsibility spec.md assigns to the
// line parser / channel filter.
func FilterRoleplay(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Channel == ChannelSay || e.Channel == ChannelEmote {
			out = append(out, e)
		}
	}
	return out
}

// FilterWindow drops every event whose timestamp falls outside
// [start, end). Applied after Reassemble so a fused continuation
// group is kept or dropped as a single unit, anchored on its first
// line's timestamp.
func FilterWindow(events []Event, start, end time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			out = append(out, e)
		}
	}
	return out
}
