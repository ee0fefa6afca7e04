package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectingTransport lets tests exercise Client.Correct against a
// local httptest server without adding an injectable base URL to
// client.go: every request is rewritten to point at the test server
// before being sent.
type redirectingTransport struct {
	target string
}

func (r *redirectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	u := *req.URL
	u.Scheme = "http"
	u.Host = r.target
	clone.URL = &u
	clone.Host = ""
	return http.DefaultTransport.RoundTrip(clone)
}

func newRedirectingClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", "test-model")
	client.HTTPClient = &http.Client{Transport: &redirectingTransport{target: server.Listener.Addr().String()}}
	return client
}

func writeChatResponse(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := chatResponse{Choices: []struct {
		Message chatMessage `json:"message"`
	}{{Message: chatMessage{Role: "assistant", Content: content}}}}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestCorrectAppliesModelOutput(t *testing.T) {
	client := newRedirectingClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatResponse(t, w, "Corrected line.")
	})

	result := Correct(context.Background(), client, "Original line.", MaxChunkChars)

	assert.True(t, result.Applied)
	assert.Equal(t, "Corrected line.", result.Text)
	assert.Empty(t, result.Warnings)
}

func TestCorrectFallsBackOnAuthFailureFirstChunk(t *testing.T) {
	client := newRedirectingClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	original := "Line one.\nLine two."
	result := Correct(context.Background(), client, original, MaxChunkChars)

	require.False(t, result.Applied)
	assert.Equal(t, original, result.Text)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, PhaseAuth, result.Warnings[0].Phase)
}

func TestCorrectFallsBackPerChunkOnServerError(t *testing.T) {
	calls := 0
	client := newRedirectingClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	result := Correct(context.Background(), client, "a single small chunk", MaxChunkChars)

	assert.True(t, calls > 1, "expected retries before falling back")
	assert.Equal(t, "a single small chunk", result.Text)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, PhaseServer, result.Warnings[0].Phase)
}
