package logline

import (
	"strings"
	"time"
)

// continuationThreshold bounds how close two lines from the same
// speaker must be in time to be considered one message split across
// lines, per spec.md §4.D.
const continuationThreshold = time.Second

// continuationSentinel is the explicit continuation marker a log
// source may prefix a wrapped line with, in addition to plain extra
// leading whitespace. The original source used a trailing marker
// ('>' or '+') to open a pending multi-line message; this spec moves
// the marker to the front of the continuation line instead.
const continuationSentinel = ">"

// Reassemble fuses continuation lines into the event they continue.
// A line is a continuation of the immediately preceding kept event
// when either its speaker is empty, or it arrives within
// continuationThreshold of that event's timestamp, carries the same
// speaker, and its body starts with a continuation marker. Fused
// bodies are joined with a single space. Reassembly never crosses a
// change of speaker and never looks further back than the immediately
// preceding event, so ordering is preserved exactly.
//
// start and end bound the window the caller will filter to next. A
// continuation is only fused when both the candidate event and the
// event it would fuse into fall inside [start, end) — per spec.md
// §4.D, reassembly must never merge across the window boundary, so a
// continuation line whose timestamp lands just past end (or an anchor
// event that lands before start) is left as its own event instead of
// being fused, letting FilterWindow drop it cleanly on the next pass.
func Reassemble(events []Event, start, end time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if len(out) > 0 && inWindow(out[len(out)-1].Timestamp, start, end) && inWindow(ev.Timestamp, start, end) && isContinuation(out[len(out)-1], ev) {
			prev := &out[len(out)-1]
			prev.Body = prev.Body + " " + stripContinuationMarker(ev.Body)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func isContinuation(prev, cur Event) bool {
	if cur.Speaker == "" {
		return true
	}
	if cur.Speaker != prev.Speaker {
		return false
	}
	delta := cur.Timestamp.Sub(prev.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	if delta >= continuationThreshold {
		return false
	}
	return startsWithContinuationMarker(cur.Body)
}

func startsWithContinuationMarker(body string) bool {
	// The standard "Speaker: body" separator leaves exactly one
	// leading space in body; a second one signals an intentional
	// continuation indent rather than the ordinary separator.
	once := strings.TrimPrefix(body, " ")
	if strings.HasPrefix(once, continuationSentinel) {
		return true
	}
	return once != body && strings.HasPrefix(once, " ")
}

func stripContinuationMarker(body string) string {
	body = strings.TrimLeft(body, " \t")
	body = strings.TrimPrefix(body, continuationSentinel)
	return strings.TrimLeft(body, " \t")
}
