// Package secret resolves a stored credential handle to its plaintext
// value without ever letting the plaintext cross a serialization
// boundary. Two backends are supported: the host OS keyring, and a
// local file encrypted with a per-device master key when the keyring
// is unavailable.
package secret

const (
	BackendKeyring        = "keyring"
	BackendLocalEncrypted = "local-encrypted"
)

// Handle is a tagged reference to a persisted secret. It never carries
// plaintext; only enough information to look the plaintext back up
// from its backing store. Handle is safe to serialize to config.toml.
type Handle struct {
	Backend string

	// Set when Backend == BackendKeyring.
	Account string

	// Set when Backend == BackendLocalEncrypted. Both are base64-encoded.
	Nonce      string
	Ciphertext string
}
