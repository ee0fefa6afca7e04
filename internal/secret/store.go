package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/convocations/convocations/internal/paths"
)

const (
	serviceName    = "com.convocations.app"
	accountPrefix  = "convocations-"
	fallbackDir    = "secrets"
	fallbackSuffix = ".json"
)

// Store resolves and persists secrets across the keyring and
// local-encrypted backends. The zero value is ready to use.
type Store struct {
	// mu serializes Set, Clear and keyring lookups within this process,
	// covering their access to the master key file and the fallback
	// directory. It is not a file lock: other processes are not
	// serialized, and local-encrypted Get does not take it.
	mu sync.Mutex
}

// New returns a ready-to-use secret Store.
func New() *Store {
	return &Store{}
}

// Set persists secret under label, preferring the OS keyring and
// falling back to local encryption when the keyring is unavailable or
// rejects the write. A successful keyring write also persists an
// encrypted fallback copy, so a later keyring outage can still recover
// the secret (mirrors the source's ensure_fallback_secret resilience).
func (s *Store) Set(label, plaintext string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(plaintext)
	if trimmed == "" {
		return nil, errors.New("secret: cannot store empty secret")
	}

	account := accountPrefix + label
	if err := keyring.Set(serviceName, account, trimmed); err == nil {
		if err := s.storeFallbackLocked(label, trimmed); err != nil {
			// Non-fatal: the keyring write already succeeded.
			_ = err
		}
		return &Handle{Backend: BackendKeyring, Account: account}, nil
	}

	nonce, ciphertext, err := encryptWithMasterKey([]byte(trimmed))
	if err != nil {
		return nil, err
	}
	_ = s.deleteFallbackLocked(label)
	return &Handle{
		Backend:    BackendLocalEncrypted,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Get resolves handle to its plaintext value. A nil handle means no
// secret has been configured.
func (s *Store) Get(handle *Handle) (string, bool, error) {
	if handle == nil {
		return "", false, nil
	}

	switch handle.Backend {
	case BackendKeyring:
		return s.getKeyring(handle)
	case BackendLocalEncrypted:
		return s.getLocalEncrypted(handle)
	default:
		return "", false, fmt.Errorf("secret: unknown backend %q", handle.Backend)
	}
}

func (s *Store) getKeyring(handle *Handle) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := labelFromAccount(handle.Account)
	value, err := keyring.Get(serviceName, handle.Account)
	switch {
	case err == nil && strings.TrimSpace(value) != "":
		_ = s.storeFallbackLocked(label, value)
		return value, true, nil
	case err == nil:
		// Keyring entry exists but is empty; fall through to fallback.
	case errors.Is(err, keyring.ErrNotFound):
		// No keyring entry at all; fall through to fallback.
	default:
		// Keyring unavailable for some other reason; attempt fallback
		// before surfacing an error.
		if v, ok, ferr := s.loadFallbackLocked(label); ferr == nil && ok {
			return v, true, nil
		}
		return "", false, fmt.Errorf("secret: keyring get failed: %w", err)
	}

	v, ok, err := s.loadFallbackLocked(label)
	if err != nil {
		return "", false, err
	}
	return v, ok, nil
}

func (s *Store) getLocalEncrypted(handle *Handle) (string, bool, error) {
	nonce, err := base64.StdEncoding.DecodeString(handle.Nonce)
	if err != nil {
		return "", false, fmt.Errorf("secret: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(handle.Ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("secret: decode ciphertext: %w", err)
	}
	plaintext, err := decryptWithMasterKey(nonce, ciphertext)
	if err != nil {
		// A MAC failure here is fatal for this handle and must not leak
		// any recovered bytes, per spec.md §4.A.
		return "", false, fmt.Errorf("secret: decryption failed: %w", err)
	}
	return string(plaintext), true, nil
}

// Clear removes the secret referenced by handle from its backing store.
func (s *Store) Clear(handle *Handle) error {
	if handle == nil {
		return nil
	}
	if handle.Backend != BackendKeyring {
		return nil // Local-encrypted secrets live only in config.toml, already gone once dereferenced.
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	label := labelFromAccount(handle.Account)
	if err := keyring.Delete(serviceName, handle.Account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("secret: keyring delete failed: %w", err)
	}
	return s.deleteFallbackLocked(label)
}

func labelFromAccount(account string) string {
	return strings.TrimPrefix(account, accountPrefix)
}

// --- local-encrypted crypto -------------------------------------------------

func encryptWithMasterKey(plaintext []byte) (nonce, ciphertext []byte, err error) {
	key, err := getOrCreateMasterKey()
	if err != nil {
		return nil, nil, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, nil, fmt.Errorf("secret: init cipher: %w", err)
	}
	nonce = make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("secret: generate nonce: %w", err)
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

func decryptWithMasterKey(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("secret: invalid nonce length %d", len(nonce))
	}
	key, err := getOrCreateMasterKey()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("secret: init cipher: %w", err)
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

// --- encrypted fallback ------------------------------------------------------

type fallbackSecret struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func fallbackPath(label string) string {
	return filepath.Join(paths.ConfigDir(), fallbackDir, label+fallbackSuffix)
}

func (s *Store) storeFallbackLocked(label, plaintext string) error {
	nonce, ciphertext, err := encryptWithMasterKey([]byte(plaintext))
	if err != nil {
		return err
	}
	payload := fallbackSecret{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("secret: encode fallback: %w", err)
	}
	path := fallbackPath(label)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("secret: create fallback directory: %w", err)
	}
	return os.WriteFile(path, encoded, 0o600)
}

func (s *Store) loadFallbackLocked(label string) (string, bool, error) {
	raw, err := os.ReadFile(fallbackPath(label))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("secret: read fallback: %w", err)
	}
	var payload fallbackSecret
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false, fmt.Errorf("secret: decode fallback: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", false, fmt.Errorf("secret: decode fallback nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("secret: decode fallback ciphertext: %w", err)
	}
	plaintext, err := decryptWithMasterKey(nonce, ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("secret: decrypt fallback: %w", err)
	}
	return string(plaintext), true, nil
}

func (s *Store) deleteFallbackLocked(label string) error {
	err := os.Remove(fallbackPath(label))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("secret: remove fallback: %w", err)
	}
	return nil
}
