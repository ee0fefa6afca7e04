package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/convocations/convocations/internal/paths"
)

// Load reads the on-disk document, migrating a legacy JSON config in
// place if the current-format file is absent, then sanitizes it.
// Load never fails on a malformed or missing document — sanitization
// falls back to defaults and reports the problem as a warning instead.
func Load() (RuntimeConfig, []Preset, []Warning, error) {
	doc, loadWarnings, err := loadDocument()
	if err != nil {
		return RuntimeConfig{}, nil, nil, err
	}
	rc, presets, sanitizeWarnings := Sanitize(doc)
	return rc, presets, append(loadWarnings, sanitizeWarnings...), nil
}

func loadDocument() (FileConfig, []Warning, error) {
	current := paths.ConfigFilePath()
	if data, err := os.ReadFile(current); err == nil {
		var doc FileConfig
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return FileConfig{}, []Warning{{Field: "config.toml", Message: "malformed document, using defaults: " + err.Error()}}, nil
		}
		return doc, nil, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, nil, fmt.Errorf("config: read %s: %w", current, err)
	}

	legacy := paths.LegacyConfigFilePath()
	data, err := os.ReadFile(legacy)
	if errors.Is(err, os.ErrNotExist) {
		return FileConfig{SchemaVersion: CurrentSchemaVersion, Presets: DefaultPresets()}, nil, nil
	}
	if err != nil {
		return FileConfig{}, nil, fmt.Errorf("config: read legacy %s: %w", legacy, err)
	}

	doc, err := migrateLegacyJSON(data)
	if err != nil {
		return FileConfig{}, []Warning{{Field: "config.json", Message: "legacy migration failed, using defaults: " + err.Error()}}, nil
	}
	// Legacy file is left in place untouched, per spec.md §6; only the
	// migrated document is persisted going forward.
	if err := Save(doc); err != nil {
		return doc, []Warning{{Field: "config.toml", Message: "migrated but failed to persist: " + err.Error()}}, nil
	}
	return doc, []Warning{{Field: "config.json", Message: "migrated legacy configuration to config.toml"}}, nil
}

// legacyDocument is the pre-TOML JSON shape. Only the fields that
// carry forward meaningfully are decoded; unknown fields are ignored.
type legacyDocument struct {
	ActivePreset string   `json:"active_preset"`
	WeeksAgo     int      `json:"weeks_ago"`
	Presets      []Preset `json:"presets"`
}

func migrateLegacyJSON(data []byte) (FileConfig, error) {
	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return FileConfig{}, fmt.Errorf("decode legacy json: %w", err)
	}
	return FileConfig{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RuntimeSection{
			ActivePreset:   legacy.ActivePreset,
			WeeksAgo:       legacy.WeeksAgo,
			Cleanup:        true,
			FormatDialogue: true,
			ShowDiff:       true,
			OutputTarget:   string(OutputFile),
		},
		Presets: legacy.Presets,
	}, nil
}

// Save persists doc atomically: write to a temp file in the same
// directory, fsync, then rename over the target. Mirrors spec.md §5's
// requirement for the configuration file.
func Save(doc FileConfig) error {
	dir := paths.ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // No-op once the rename below succeeds.

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}

	target := paths.ConfigFilePath()
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// SavePresetsAndUI persists only the presets and UI sections,
// preserving whatever runtime section is already on disk. Used by the
// preset CLI subcommands so a CRUD operation does not need to
// re-derive the full runtime configuration; the secret subcommands
// persist through SaveRuntime instead. Grounded on the source
// implementation's save_presets_and_ui_only.
func SavePresetsAndUI(presets []Preset, ui map[string]any) error {
	doc, _, err := loadDocument()
	if err != nil {
		return err
	}
	doc.SchemaVersion = CurrentSchemaVersion
	doc.Presets = presets
	doc.UI = ui
	return Save(doc)
}

// SaveRuntime persists rc's runtime knobs and presets, preserving
// whatever UI section is already on disk. Used by the secret
// subcommand after storing or clearing the OpenRouter credential, and
// by any future flow that needs the resolved runtime config (rather
// than just presets/UI) written back.
func SaveRuntime(rc RuntimeConfig, presets []Preset) error {
	doc, _, err := loadDocument()
	if err != nil {
		return err
	}
	doc.SchemaVersion = CurrentSchemaVersion
	doc.Runtime = runtimeToSection(rc)
	doc.Presets = presets
	return Save(doc)
}

func runtimeToSection(rc RuntimeConfig) RuntimeSection {
	return RuntimeSection{
		InputPath:               rc.InputPath,
		ActivePreset:            rc.ActivePreset,
		WeeksAgo:                rc.WeeksAgo,
		ExplicitStart:           rc.ExplicitStart,
		ExplicitEnd:             rc.ExplicitEnd,
		DurationOverride:        rc.DurationOverride,
		Cleanup:                 rc.Cleanup,
		FormatDialogue:          rc.FormatDialogue,
		UseLLM:                  rc.UseLLM,
		KeepOriginalOutput:      rc.KeepOriginalOutput,
		ShowDiff:                rc.ShowDiff,
		DryRun:                  rc.DryRun,
		OutputTarget:            string(rc.OutputTarget),
		OutputPathOverride:      rc.OutputPathOverride,
		OutputDirectoryOverride: rc.OutputDirectoryOverride,
		OpenRouterModel:         rc.ModelIdentifier,
		FreeModelsOnly:          rc.FreeModelsOnly,
		OpenRouterAPIKey:        fromHandle(rc.OpenRouterKey),
	}
}
