package secret

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/convocations/convocations/internal/paths"
)

const masterKeyFile = "secret.key"

func masterKeyPath() string {
	return filepath.Join(paths.ConfigDir(), masterKeyFile)
}

// getOrCreateMasterKey reads the 32-byte per-device key used for the
// local-encrypted backend, generating and persisting a fresh one
// (mode 0600) on first use. There is no file lock: Store.Set and the
// keyring paths call it with Store.mu held, an in-process mutex;
// getLocalEncrypted calls it without that mutex, and separate
// processes are not serialized at all. A stale key of the wrong
// length is treated as absent and regenerated.
func getOrCreateMasterKey() ([32]byte, error) {
	var key [32]byte

	path := masterKeyPath()
	if data, err := os.ReadFile(path); err == nil && len(data) == 32 {
		copy(key[:], data)
		return key, nil
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("secret: generate master key: %w", err)
	}
	if err := writeKeyFile(path, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

func writeKeyFile(path string, key []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("secret: create config directory: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return fmt.Errorf("secret: write master key: %w", err)
	}
	// os.WriteFile honors the mode only when creating the file; make sure
	// an existing file with looser permissions gets tightened too.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("secret: chmod master key: %w", err)
	}
	return nil
}
