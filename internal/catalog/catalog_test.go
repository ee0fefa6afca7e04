package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModelAutoFreeOnlyPrefersProviderOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(server.Client())
	entry, err := r.ResolveModel(context.Background(), "auto", true)

	require.NoError(t, err)
	assert.True(t, entry.Free)
	assert.Equal(t, "x-ai", entry.Provider)
}

func TestResolveModelAutoWithoutFreeOnlyPrefersCheapest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(server.Client())
	entry, err := r.ResolveModel(context.Background(), "auto", false)

	require.NoError(t, err)
	assert.True(t, entry.Free)
}

func TestResolveModelExplicitPaidModelUnderFreeOnlyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(server.Client())
	_, err := r.ResolveModel(context.Background(), "openai/gpt-4o-mini", true)

	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestResolveModelExplicitUnknownModelFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(server.Client())
	_, err := r.ResolveModel(context.Background(), "nonexistent/model", false)

	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

// redirectingTransport rewrites every outbound request to target a
// local httptest server, since fetchLive has no injectable base URL.
type redirectingTransport struct {
	target string
}

func (rt *redirectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	u := *req.URL
	u.Scheme = "http"
	u.Host = rt.target
	clone.URL = &u
	clone.Host = ""
	return http.DefaultTransport.RoundTrip(clone)
}

func TestResolveModelLiveFetchOverridesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"anthropic/claude-live","name":"Claude Live","pricing":{"prompt":"0","completion":"0"},"context_length":200000}]}`))
	}))
	defer server.Close()

	httpClient := &http.Client{Transport: &redirectingTransport{target: server.Listener.Addr().String()}}
	r := NewResolver(httpClient)
	entries, err := r.catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "anthropic/claude-live", entries[0].Slug)
	assert.True(t, entries[0].Free)
}

func TestLoadEmbeddedSnapshotDecodes(t *testing.T) {
	entries, err := loadEmbedded()

	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
