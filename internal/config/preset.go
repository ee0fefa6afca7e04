// Package config loads, sanitizes, and persists the Convocations
// on-disk configuration: presets, runtime preferences, and the
// secret-handle reference for the LLM credential.
package config

import (
	"strings"
	"time"
)

// Weekday identifies the day of the week a preset's event recurs on.
// A dedicated type (rather than reusing time.Weekday directly) keeps
// the TOML wire format stable and self-documenting.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

func (w Weekday) String() string {
	names := [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	if w < Sunday || w > Saturday {
		return "invalid"
	}
	return names[w]
}

// ToTime converts to the standard library's time.Weekday for use with
// time.Date and friends.
func (w Weekday) ToTime() time.Weekday {
	return time.Weekday(w)
}

// ParseWeekday accepts case-insensitive full weekday names.
func ParseWeekday(s string) (Weekday, bool) {
	switch strings.ToLower(s) {
	case "sunday":
		return Sunday, true
	case "monday":
		return Monday, true
	case "tuesday":
		return Tuesday, true
	case "wednesday":
		return Wednesday, true
	case "thursday":
		return Thursday, true
	case "friday":
		return Friday, true
	case "saturday":
		return Saturday, true
	default:
		return 0, false
	}
}

// Preset is a named, reusable event-window template. Name is the
// stable identifier — the source implementation this was ported from
// oscillated between id and name as primary key; this port settles on
// name everywhere, including deduplication during sanitization.
type Preset struct {
	Name          string  `toml:"name"`
	Weekday       Weekday `toml:"weekday"`
	Timezone      string  `toml:"timezone"` // IANA identifier, e.g. "America/New_York"
	StartHour     int     `toml:"start_hour"`
	StartMinute   int     `toml:"start_minute"`
	DurationMins  int     `toml:"duration_minutes"`
	FilePrefix    string  `toml:"file_prefix"`
	DefaultWeeksAgo int   `toml:"default_weeks_ago"`
	Builtin       bool    `toml:"builtin"`
}

// Builtin preset names. These four must always survive sanitization;
// deleting one via the preset CRUD surface is rejected.
const (
	SaturdayRaidPreset = "saturday-raid"
	Tuesday7Preset     = "tuesday-7"
	Tuesday8Preset     = "tuesday-8"
	Friday6Preset      = "friday-6"
)

// DefaultPresets returns the four builtin presets with their canonical
// values. Grounded on the original implementation's default_presets
// table (America/New_York event times used by the source community).
func DefaultPresets() []Preset {
	return []Preset{
		{
			Name:            SaturdayRaidPreset,
			Weekday:         Saturday,
			Timezone:        "America/New_York",
			StartHour:       22,
			StartMinute:     0,
			DurationMins:    145,
			FilePrefix:      "RSM",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            Tuesday7Preset,
			Weekday:         Tuesday,
			Timezone:        "America/New_York",
			StartHour:       19,
			StartMinute:     0,
			DurationMins:    180,
			FilePrefix:      "TP7",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            Tuesday8Preset,
			Weekday:         Tuesday,
			Timezone:        "America/New_York",
			StartHour:       20,
			StartMinute:     0,
			DurationMins:    150,
			FilePrefix:      "TP8",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            Friday6Preset,
			Weekday:         Friday,
			Timezone:        "America/New_York",
			StartHour:       18,
			StartMinute:     0,
			DurationMins:    210,
			FilePrefix:      "FRI6",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
	}
}

// IsBuiltinName reports whether name identifies one of the four
// builtin presets, regardless of what a loaded document claims.
func IsBuiltinName(name string) bool {
	switch name {
	case SaturdayRaidPreset, Tuesday7Preset, Tuesday8Preset, Friday6Preset:
		return true
	default:
		return false
	}
}
