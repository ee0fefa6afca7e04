package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRestoresMissingBuiltins(t *testing.T) {
	doc := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime:       RuntimeSection{ActivePreset: SaturdayRaidPreset, OutputTarget: string(OutputFile)},
	}

	_, presets, warnings := Sanitize(doc)

	require.Len(t, presets, 4)
	for _, name := range []string{SaturdayRaidPreset, Tuesday7Preset, Tuesday8Preset, Friday6Preset} {
		_, ok := FindPreset(presets, name)
		assert.True(t, ok, "expected builtin %s to be present", name)
	}
	assert.NotEmpty(t, warnings)
}

func TestSanitizeDeduplicatesPresetsFirstWins(t *testing.T) {
	doc := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime:       RuntimeSection{ActivePreset: "custom", OutputTarget: string(OutputFile)},
		Presets: []Preset{
			{Name: "custom", FilePrefix: "first"},
			{Name: "custom", FilePrefix: "second"},
		},
	}

	_, presets, warnings := Sanitize(doc)

	p, ok := FindPreset(presets, "custom")
	require.True(t, ok)
	assert.Equal(t, "first", p.FilePrefix)
	assert.Condition(t, func() bool {
		for _, w := range warnings {
			if w.Field == "presets" {
				return true
			}
		}
		return false
	})
}

func TestSanitizeUnknownActivePresetResetsToFirstBuiltin(t *testing.T) {
	doc := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime:       RuntimeSection{ActivePreset: "does-not-exist", OutputTarget: string(OutputFile)},
	}

	rc, presets, warnings := Sanitize(doc)

	assert.Equal(t, presets[0].Name, rc.ActivePreset)
	assert.NotEmpty(t, warnings)
}

func TestSanitizeSchemaMismatchReplacesWithDefaults(t *testing.T) {
	doc := FileConfig{SchemaVersion: CurrentSchemaVersion + 1}

	rc, presets, warnings := Sanitize(doc)

	assert.Len(t, presets, 4)
	assert.Equal(t, OutputFile, rc.OutputTarget)
	assert.Len(t, warnings, 1)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	doc := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RuntimeSection{
			ActivePreset:   Tuesday7Preset,
			OutputTarget:   string(OutputFile),
			Cleanup:        true,
			FormatDialogue: true,
		},
		Presets: DefaultPresets(),
	}

	rc1, presets1, warnings1 := Sanitize(doc)
	require.Empty(t, warnings1)

	roundTripped := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RuntimeSection{
			ActivePreset:            rc1.ActivePreset,
			WeeksAgo:                rc1.WeeksAgo,
			OutputTarget:            string(rc1.OutputTarget),
			Cleanup:                 rc1.Cleanup,
			FormatDialogue:          rc1.FormatDialogue,
			UseLLM:                  rc1.UseLLM,
			KeepOriginalOutput:      rc1.KeepOriginalOutput,
			ShowDiff:                rc1.ShowDiff,
			DryRun:                  rc1.DryRun,
			OutputPathOverride:      rc1.OutputPathOverride,
			OutputDirectoryOverride: rc1.OutputDirectoryOverride,
			OpenRouterModel:         rc1.ModelIdentifier,
			FreeModelsOnly:          rc1.FreeModelsOnly,
			DurationOverride:        rc1.DurationOverride,
		},
		Presets: presets1,
	}

	rc2, presets2, warnings2 := Sanitize(roundTripped)

	assert.Equal(t, rc1, rc2)
	assert.Equal(t, presets1, presets2)
	assert.Empty(t, warnings2)
}

func TestSanitizeInvalidDurationOverrideDisabled(t *testing.T) {
	doc := FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RuntimeSection{
			ActivePreset:     SaturdayRaidPreset,
			OutputTarget:     string(OutputFile),
			DurationOverride: DurationOverride{Enabled: true, Hours: 0.1},
		},
	}

	rc, _, warnings := Sanitize(doc)

	assert.False(t, rc.DurationOverride.Enabled)
	assert.NotEmpty(t, warnings)
}
