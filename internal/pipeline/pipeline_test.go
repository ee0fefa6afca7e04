package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocations/convocations/internal/catalog"
	"github.com/convocations/convocations/internal/config"
	"github.com/convocations/convocations/internal/job"
	"github.com/convocations/convocations/internal/secret"
)

const sampleLog = "[2024-06-01 20:05:00] [SAY] Alice: Hello there\n[2024-06-01 20:05:01] [EMOTE] Bob: waves hello\n"

func baseConfig(t *testing.T, dir string) config.RuntimeConfig {
	t.Helper()
	input := filepath.Join(dir, "input.log")
	require.NoError(t, os.WriteFile(input, []byte(sampleLog), 0o644))

	return config.RuntimeConfig{
		InputPath:               input,
		ExplicitStart:           "2024-06-01T20:00:00",
		ExplicitEnd:             "2024-06-01T21:00:00",
		OutputDirectoryOverride: dir,
		OutputTarget:            config.OutputDirectory,
	}
}

func collectEvents(run job.RunFunc) []job.Event {
	var events []job.Event
	_ = run(context.Background(), func(ev job.Event) { events = append(events, ev) })
	return events
}

func outputText(t *testing.T, events []job.Event) string {
	t.Helper()
	for _, ev := range events {
		if ev.Kind == job.EventCompleted {
			data, err := os.ReadFile(ev.OutputPath)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatal("no completed event with output path")
	return ""
}

func TestPipelineCleanupOnFormatOn(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = true

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))
	text := outputText(t, events)

	assert.Equal(t, "Alice says, \"Hello there.\"\nBob waves hello.\n", text)
}

func TestPipelineCleanupOffFormatOn(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = false
	cfg.FormatDialogue = true

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))
	text := outputText(t, events)

	assert.Equal(t, "Alice says, \"Hello there\"\nBob waves hello\n", text)
}

func TestPipelineCleanupOnFormatOff(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = false

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))
	text := outputText(t, events)

	assert.Equal(t, "Hello there.\nwaves hello.\n", text)
}

func TestPipelineCleanupOffFormatOff(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = false
	cfg.FormatDialogue = false

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))
	text := outputText(t, events)

	assert.Equal(t, "Hello there\nwaves hello\n", text)
}

func TestPipelineDryRunWritesNoOutputAndOnlyStageBeginResolve(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = true
	cfg.DryRun = true

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))

	require.Len(t, events, 2)
	assert.Equal(t, job.EventStageBegin, events[0].Kind)
	assert.Equal(t, job.StageResolve, events[0].Stage)
	assert.Equal(t, job.EventCompleted, events[1].Kind)
	assert.NotEmpty(t, events[1].OutputPath)

	// Only the input fixture that baseConfig wrote may be present.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "input.log", entries[0].Name())
}

func TestPipelineMissingOutputDirectoryFailsWithIoError(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = true
	cfg.OutputDirectoryOverride = filepath.Join(dir, "does-not-exist")

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))

	last := events[len(events)-1]
	assert.Equal(t, job.EventFailed, last.Kind)
	assert.Equal(t, job.ErrorIO, last.ErrorKind)
}

func TestPipelineEmptyWindowFails(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = true
	cfg.ExplicitStart = "2024-06-01T01:00:00"
	cfg.ExplicitEnd = "2024-06-01T02:00:00"

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], Deps{}))

	last := events[len(events)-1]
	assert.Equal(t, job.EventFailed, last.Kind)
	assert.Equal(t, job.ErrorEmptyWindow, last.ErrorKind)
}

// redirectingTransport rewrites every outbound request to target a
// local httptest server, since llm.Client has no injectable base URL.
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

func TestPipelineLLMAuthFailureOnFirstChunkFallsBackAndCompletes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONVOCATIONS_WORKING_DIR", t.TempDir())
	cfg := baseConfig(t, dir)
	cfg.Cleanup = true
	cfg.FormatDialogue = true
	cfg.UseLLM = true
	cfg.ShowDiff = true
	cfg.ModelIdentifier = "x-ai/grok-2-1212:free"
	cfg.FreeModelsOnly = true

	store := secret.New()
	handle, err := store.Set("test-openrouter", "sk-test")
	require.NoError(t, err)
	cfg.OpenRouterKey = handle

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	deps := Deps{
		Secrets:    store,
		Models:     catalog.NewResolver(&http.Client{Transport: &redirectingTransport{target: server.Listener.Addr().String()}}),
		HTTPClient: &http.Client{Transport: &redirectingTransport{target: server.Listener.Addr().String()}},
	}

	events := collectEvents(Build(cfg, config.DefaultPresets()[0], deps))

	last := events[len(events)-1]
	require.Equal(t, job.EventCompleted, last.Kind)

	text := outputText(t, events)
	assert.Equal(t, "Alice says, \"Hello there.\"\nBob waves hello.\n", text)

	var sawDiff bool
	for _, ev := range events {
		if ev.Kind == job.EventDiff {
			sawDiff = true
		}
	}
	assert.False(t, sawDiff, "diff must be omitted when the LLM stage never applied a correction")
}
