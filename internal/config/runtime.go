package config

import "github.com/convocations/convocations/internal/secret"

// OutputTarget selects whether the runtime writes a single named file
// or derives a filename inside a directory.
type OutputTarget string

const (
	OutputFile      OutputTarget = "file"
	OutputDirectory OutputTarget = "directory"
)

// DurationOverride replaces a preset's configured duration with an
// explicit number of hours. Hours must be finite and >= 1.
type DurationOverride struct {
	Enabled bool    `toml:"enabled"`
	Hours   float64 `toml:"hours"`
}

// RuntimeConfig is the fully sanitized set of knobs driving a single
// pipeline run. It is the output of Sanitize, never loaded directly
// from disk (FileConfig is the raw on-disk shape).
type RuntimeConfig struct {
	InputPath string

	ActivePreset string
	WeeksAgo     int

	// Explicit window bounds bypass preset resolution entirely when set.
	ExplicitStart string
	ExplicitEnd   string

	DurationOverride DurationOverride

	Cleanup            bool
	FormatDialogue     bool
	UseLLM             bool
	KeepOriginalOutput bool
	ShowDiff           bool
	DryRun             bool

	OutputTarget            OutputTarget
	OutputPathOverride      string
	OutputDirectoryOverride string

	ModelIdentifier string
	FreeModelsOnly  bool

	OpenRouterKey *secret.Handle
}

// FileConfig is the exact on-disk TOML document shape, matching the
// original implementation's serde layout: a schema version, a
// [runtime] table, its two sub-tables, an opaque [ui] table, and a
// sequence of [[presets]] tables.
type FileConfig struct {
	SchemaVersion int              `toml:"schema_version"`
	Runtime       RuntimeSection   `toml:"runtime"`
	UI            map[string]any   `toml:"ui"`
	Presets       []Preset         `toml:"presets"`
}

// RuntimeSection is the [runtime] table of the on-disk document.
type RuntimeSection struct {
	InputPath               string           `toml:"input_path"`
	ActivePreset            string           `toml:"active_preset"`
	WeeksAgo                int              `toml:"weeks_ago"`
	ExplicitStart           string           `toml:"explicit_start"`
	ExplicitEnd             string           `toml:"explicit_end"`
	DurationOverride        DurationOverride `toml:"duration_override"`
	Cleanup                 bool             `toml:"cleanup"`
	FormatDialogue          bool             `toml:"format_dialogue"`
	UseLLM                  bool             `toml:"use_llm"`
	KeepOriginalOutput      bool             `toml:"keep_original_output"`
	ShowDiff                bool             `toml:"show_diff"`
	DryRun                  bool             `toml:"dry_run"`
	OutputTarget            string           `toml:"output_target"`
	OutputPathOverride      string           `toml:"output_path_override"`
	OutputDirectoryOverride string           `toml:"output_directory_override"`
	OpenRouterModel         string           `toml:"openrouter_model"`
	FreeModelsOnly          bool             `toml:"free_models_only"`
	OpenRouterAPIKey        SecretSection    `toml:"openrouter_api_key"`
}

// SecretSection mirrors secret.Handle's tagged-variant fields so it
// round-trips through TOML without the secret package depending on
// the TOML library directly.
type SecretSection struct {
	Backend    string `toml:"backend"`
	Account    string `toml:"account,omitempty"`
	Nonce      string `toml:"nonce,omitempty"`
	Ciphertext string `toml:"ciphertext,omitempty"`
}

func (s SecretSection) toHandle() *secret.Handle {
	switch s.Backend {
	case secret.BackendKeyring:
		return &secret.Handle{Backend: secret.BackendKeyring, Account: s.Account}
	case secret.BackendLocalEncrypted:
		return &secret.Handle{Backend: secret.BackendLocalEncrypted, Nonce: s.Nonce, Ciphertext: s.Ciphertext}
	default:
		return nil
	}
}

func fromHandle(h *secret.Handle) SecretSection {
	if h == nil {
		return SecretSection{}
	}
	return SecretSection{
		Backend:    h.Backend,
		Account:    h.Account,
		Nonce:      h.Nonce,
		Ciphertext: h.Ciphertext,
	}
}

// Warning is a non-fatal sanitization finding, surfaced to the caller
// but never blocking a run.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	if w.Field == "" {
		return w.Message
	}
	return w.Field + ": " + w.Message
}
