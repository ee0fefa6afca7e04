package config

import (
	"fmt"
	"math"
)

// CurrentSchemaVersion is bumped whenever the on-disk document shape
// changes incompatibly. A mismatched schema_version causes the whole
// document to be replaced by defaults (Sanitize below).
const CurrentSchemaVersion = 1

// Sanitize is a pure function from a raw on-disk document to a
// validated RuntimeConfig, the current preset set, and a list of
// non-fatal warnings. It checks the schema version, preset name
// uniqueness and the builtin set, weeks_ago, output_target, the
// duration override, the explicit start/end pair, and the active
// preset. It does not validate the other fields of individual presets
// (duration, file prefix, timezone), and it does not check that the
// parent directory of OutputPathOverride exists; the pipeline reports
// a missing output directory when it writes. It is idempotent:
// sanitizing the document that runtimeToSection (file.go) rebuilds
// from its output produces the same RuntimeConfig, presets, and no
// new warnings.
func Sanitize(doc FileConfig) (RuntimeConfig, []Preset, []Warning) {
	var warnings []Warning

	if doc.SchemaVersion != CurrentSchemaVersion {
		warnings = append(warnings, Warning{
			Field:   "schema_version",
			Message: fmt.Sprintf("unrecognized schema_version %d, replacing document with defaults", doc.SchemaVersion),
		})
		return defaultRuntimeConfig(), DefaultPresets(), warnings
	}

	presets, presetWarnings := sanitizePresets(doc.Presets)
	warnings = append(warnings, presetWarnings...)

	rc := RuntimeConfig{
		InputPath:               doc.Runtime.InputPath,
		ActivePreset:            doc.Runtime.ActivePreset,
		WeeksAgo:                doc.Runtime.WeeksAgo,
		ExplicitStart:           doc.Runtime.ExplicitStart,
		ExplicitEnd:             doc.Runtime.ExplicitEnd,
		DurationOverride:        doc.Runtime.DurationOverride,
		Cleanup:                 doc.Runtime.Cleanup,
		FormatDialogue:          doc.Runtime.FormatDialogue,
		UseLLM:                  doc.Runtime.UseLLM,
		KeepOriginalOutput:      doc.Runtime.KeepOriginalOutput,
		ShowDiff:                doc.Runtime.ShowDiff,
		DryRun:                  doc.Runtime.DryRun,
		OutputTarget:            OutputTarget(doc.Runtime.OutputTarget),
		OutputPathOverride:      doc.Runtime.OutputPathOverride,
		OutputDirectoryOverride: doc.Runtime.OutputDirectoryOverride,
		ModelIdentifier:         doc.Runtime.OpenRouterModel,
		FreeModelsOnly:          doc.Runtime.FreeModelsOnly,
		OpenRouterKey:           doc.Runtime.OpenRouterAPIKey.toHandle(),
	}

	if rc.WeeksAgo < 0 {
		warnings = append(warnings, Warning{Field: "weeks_ago", Message: "negative weeks_ago reset to 0"})
		rc.WeeksAgo = 0
	}

	if rc.OutputTarget != OutputFile && rc.OutputTarget != OutputDirectory {
		warnings = append(warnings, Warning{Field: "output_target", Message: "unknown output_target, defaulting to file"})
		rc.OutputTarget = OutputFile
	}

	if rc.DurationOverride.Enabled {
		if rc.DurationOverride.Hours < 1 || !isFinite(rc.DurationOverride.Hours) {
			warnings = append(warnings, Warning{Field: "duration_override.hours", Message: "invalid duration override, disabling"})
			rc.DurationOverride = DurationOverride{}
		}
	}

	if rc.ExplicitStart != "" || rc.ExplicitEnd != "" {
		if rc.ExplicitStart == "" || rc.ExplicitEnd == "" {
			warnings = append(warnings, Warning{Field: "explicit_start/end", Message: "both start and end are required together, ignoring"})
			rc.ExplicitStart, rc.ExplicitEnd = "", ""
		}
	}

	if !presetExists(presets, rc.ActivePreset) {
		warnings = append(warnings, Warning{Field: "active_preset", Message: fmt.Sprintf("unknown preset %q, resetting to %q", rc.ActivePreset, presets[0].Name)})
		rc.ActivePreset = presets[0].Name
	}

	if rc.ModelIdentifier == "" {
		rc.ModelIdentifier = "auto"
	}

	return rc, presets, warnings
}

func defaultRuntimeConfig() RuntimeConfig {
	presets := DefaultPresets()
	return RuntimeConfig{
		ActivePreset:    presets[0].Name,
		Cleanup:         true,
		FormatDialogue:  true,
		ShowDiff:        true,
		OutputTarget:    OutputFile,
		ModelIdentifier: "auto",
	}
}

// sanitizePresets restores any missing builtins, deduplicates by name
// (first occurrence wins), and rejects deletion attempts implicitly by
// always re-adding the builtin four.
func sanitizePresets(raw []Preset) ([]Preset, []Warning) {
	var warnings []Warning
	seen := make(map[string]bool, len(raw))
	var out []Preset

	for _, p := range raw {
		if seen[p.Name] {
			warnings = append(warnings, Warning{Field: "presets", Message: fmt.Sprintf("duplicate preset name %q, keeping first occurrence", p.Name)})
			continue
		}
		if IsBuiltinName(p.Name) {
			p.Builtin = true
		}
		seen[p.Name] = true
		out = append(out, p)
	}

	for _, builtin := range DefaultPresets() {
		if !seen[builtin.Name] {
			warnings = append(warnings, Warning{Field: "presets", Message: fmt.Sprintf("restoring missing builtin preset %q", builtin.Name)})
			out = append(out, builtin)
			seen[builtin.Name] = true
		}
	}

	return out, warnings
}

func presetExists(presets []Preset, name string) bool {
	for _, p := range presets {
		if p.Name == name {
			return true
		}
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FindPreset returns the preset with the given name, if present.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// EffectiveDurationMinutes resolves a preset's duration, honoring a
// duration override when enabled.
func EffectiveDurationMinutes(preset Preset, override DurationOverride) int {
	if override.Enabled && override.Hours >= 1 {
		return int(override.Hours * 60)
	}
	return preset.DurationMins
}
