// Package paths resolves the single on-disk directory Convocations
// stores its configuration, secrets, and logs under. Kept separate
// from internal/config and internal/secret so neither has to import
// the other just to agree on where things live.
package paths

import (
	"os"
	"path/filepath"
)

const appDirName = "convocations"

// ConfigDir returns the directory holding config.toml, secret.key,
// the encrypted-fallback secrets subdirectory, and logs. It is
// created on first use by callers that need to write into it; ConfigDir
// itself never creates anything.
func ConfigDir() string {
	if override := os.Getenv("CONVOCATIONS_WORKING_DIR"); override != "" {
		return override
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, appDirName)
}

// ConfigFilePath returns the path to the current-format config document.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LegacyConfigFilePath returns the path of the pre-migration JSON
// config document, checked when ConfigFilePath does not exist.
func LegacyConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.json")
}
