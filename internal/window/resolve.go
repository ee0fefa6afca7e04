// Package window resolves a preset plus a weeks-ago offset (or an
// explicit pair of instants) into a concrete, timezone-correct UTC
// event window.
package window

import (
	"fmt"
	"time"

	"github.com/convocations/convocations/internal/config"
)

// Window is a closed-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// InvalidWindowError reports a resolution failure: an unknown
// timezone, a malformed explicit bound, or end <= start.
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return "invalid window: " + e.Reason
}

// Resolve computes the event window for preset, weeksAgo, and an
// optional duration override, relative to now (which must already be
// in some timezone — Resolve re-derives the preset's own timezone
// internally). Algorithm, per spec.md §4.B:
//  1. take now in the preset's IANA timezone;
//  2. step backward day-by-day until the weekday matches, then
//     subtract 7*weeksAgo more days;
//  3. construct the local start instant from that date and the
//     preset's start time, resolving DST ambiguity/non-existence;
//  4. add the effective duration;
//  5. convert both endpoints to UTC.
func Resolve(preset config.Preset, weeksAgo int, override config.DurationOverride, now time.Time) (Window, error) {
	if weeksAgo < 0 {
		return Window{}, &InvalidWindowError{Reason: "weeks_ago must be non-negative"}
	}

	loc, err := time.LoadLocation(preset.Timezone)
	if err != nil {
		return Window{}, &InvalidWindowError{Reason: fmt.Sprintf("unknown timezone %q: %v", preset.Timezone, err)}
	}

	nowLocal := now.In(loc)
	durationMinutes := config.EffectiveDurationMinutes(preset, override)
	duration := time.Duration(durationMinutes) * time.Minute

	date := stepBackToWeekday(nowLocal, preset.Weekday.ToTime(), preset.StartHour, preset.StartMinute, duration, loc)
	date = date.AddDate(0, 0, -7*weeksAgo)

	start := resolveLocalInstant(date, preset.StartHour, preset.StartMinute, loc)
	end := start.Add(duration)

	startUTC := start.UTC()
	endUTC := end.UTC()
	if !endUTC.After(startUTC) {
		return Window{}, &InvalidWindowError{Reason: "end must be after start"}
	}

	return Window{Start: startUTC, End: endUTC}, nil
}

// ResolveExplicit bypasses preset resolution entirely: start and end
// are parsed as RFC 3339 (or the bare "2006-01-02T15:04" shape the CLI
// accepts) and interpreted in loc.
func ResolveExplicit(startRaw, endRaw string, loc *time.Location) (Window, error) {
	start, err := parseLocalTimestamp(startRaw, loc)
	if err != nil {
		return Window{}, &InvalidWindowError{Reason: "malformed start: " + err.Error()}
	}
	end, err := parseLocalTimestamp(endRaw, loc)
	if err != nil {
		return Window{}, &InvalidWindowError{Reason: "malformed end: " + err.Error()}
	}
	if !end.UTC().After(start.UTC()) {
		return Window{}, &InvalidWindowError{Reason: "end must be after start"}
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

func parseLocalTimestamp(raw string, loc *time.Location) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// stepBackToWeekday walks backward from now (inclusive) until it finds
// a date that is "on" weekday. A late-evening preset (e.g. the
// built-in Saturday raid, which starts at 22:00 and runs past
// midnight) is considered to land on its target weekday even when its
// local start civil date is the day before: a candidate date qualifies
// either because the candidate itself falls on weekday, or because the
// session it produces (start+duration) rolls over into weekday. This
// mirrors how the community actually names these sessions ("Saturday
// raid" for one that kicks off Friday night) rather than a strict
// calendar-date match. Grounded on the source implementation's
// find_weekday_occurrence / calculate_dates_for_event shape.
func stepBackToWeekday(now time.Time, weekday time.Weekday, startHour, startMinute int, duration time.Duration, loc *time.Location) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < 7; i++ {
		if candidate.Weekday() == weekday {
			return candidate
		}
		start := resolveLocalInstant(candidate, startHour, startMinute, loc)
		end := start.Add(duration)
		if end.In(loc).Weekday() == weekday {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, -1)
	}
	return candidate
}

// resolveLocalInstant builds the local wall-clock instant for date at
// hour:minute in loc, handling DST ambiguity and non-existence:
//   - ambiguous (fall-back): time.Date may return either of the two
//     instants that share the wall clock; the instants one hour before
//     and after the naive result are probed, and if either reads the
//     same wall clock the earlier of the pair is returned.
//   - non-existent (spring-forward gap): time.Date returns an instant
//     whose wall clock differs from the requested one (in practice one
//     just before the gap); that is detected, and the first instant
//     whose wall clock reaches the requested one (the end of the gap)
//     is returned instead.
func resolveLocalInstant(date time.Time, hour, minute int, loc *time.Location) time.Time {
	naive := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)

	if naive.Hour() != hour || naive.Minute() != minute || naive.Day() != date.Day() {
		// Spring-forward gap: the wall-clock time requested does not
		// exist. Walk forward minute by minute from before the gap to the
		// first instant whose local wall clock is at or past the request.
		target := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
		for t := naive.Add(-2 * time.Hour); ; t = t.Add(time.Minute) {
			l := t.In(loc)
			if !time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), 0, 0, time.UTC).Before(target) {
				return t
			}
		}
	}

	// DST transitions are (almost) always exactly one hour; probe both
	// neighbors for an instant that maps back to the same wall clock
	// reading. If one does, the wall clock is ambiguous (fall-back)
	// and spec.md §4.B mandates choosing the earlier of the two.
	for _, delta := range []time.Duration{-time.Hour, time.Hour} {
		candidate := naive.Add(delta)
		if sameWallClock(candidate, date, hour, minute, loc) {
			if candidate.Before(naive) {
				return candidate
			}
			return naive
		}
	}

	return naive
}

func sameWallClock(t time.Time, date time.Time, hour, minute int, loc *time.Location) bool {
	local := t.In(loc)
	return local.Year() == date.Year() && local.Month() == date.Month() && local.Day() == date.Day() &&
		local.Hour() == hour && local.Minute() == minute
}
