package secret

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalEncryptedRoundTrip(t *testing.T) {
	t.Setenv("CONVOCATIONS_WORKING_DIR", t.TempDir())

	nonce, ciphertext, err := encryptWithMasterKey([]byte("swordfish"))
	require.NoError(t, err)

	handle := &Handle{
		Backend:    BackendLocalEncrypted,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	s := New()
	plaintext, ok, err := s.Get(handle)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "swordfish", plaintext)
}

func TestSetRejectsEmptySecret(t *testing.T) {
	t.Setenv("CONVOCATIONS_WORKING_DIR", t.TempDir())

	s := New()
	_, err := s.Set("openrouter", "   ")
	require.Error(t, err)
}

func TestGetNilHandleReturnsNotFound(t *testing.T) {
	s := New()
	plaintext, ok, err := s.Get(nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, plaintext)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	t.Setenv("CONVOCATIONS_WORKING_DIR", t.TempDir())

	nonce, ciphertext, err := encryptWithMasterKey([]byte("secret-value"))
	require.NoError(t, err)

	// Simulate a corrupted ciphertext (wrong MAC) by flipping a byte.
	ciphertext[0] ^= 0xFF

	_, err = decryptWithMasterKey(nonce, ciphertext)
	require.Error(t, err)
}
