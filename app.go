// Package convocations is the public API for the batch chat-log
// conversion tool: load configuration, submit a single conversion job,
// and observe its progress.
//
// cmd/convocations imports this package the way an embedding consumer
// would:
//
//	app, err := convocations.New()
//	if err != nil { ... }
//	id, progress, err := app.Submit(cfg, preset)
//	for ev := range progress { ... }
//
// The import graph enforces a strict no-cycle rule: convocations
// (root) imports internal/*, but internal/* never imports convocations
// (root). Public types (ProgressEvent, JobID) have no fields of
// internal types; the converter that bridges job.Event and
// ProgressEvent, toPublicProgress, lives in this file.
package convocations

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/convocations/convocations/internal/catalog"
	"github.com/convocations/convocations/internal/config"
	"github.com/convocations/convocations/internal/job"
	"github.com/convocations/convocations/internal/pipeline"
	"github.com/convocations/convocations/internal/secret"
)

// App owns the singleton job runtime and the resolved configuration.
// Construct with New(), submit work with Submit().
type App struct {
	logger *slog.Logger
	secrets SecretBackend
	models  ModelCatalog
	clock   Clock

	httpClient *http.Client
	jobs       *job.Runtime
	sinks      []ProgressSink

	Config  config.RuntimeConfig
	Presets []config.Preset
}

// New loads the on-disk configuration and wires the secret store,
// model catalog, and job runtime. It does not start any goroutines or
// submit any work — call Submit().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	if o.configDir != "" {
		if err := os.Setenv("CONVOCATIONS_WORKING_DIR", o.configDir); err != nil {
			return nil, fmt.Errorf("set config dir: %w", err)
		}
	}

	rc, presets, warnings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	secrets := o.secrets
	if secrets == nil {
		secrets = secret.New()
	}

	models := o.models
	if models == nil {
		models = catalog.NewResolver(httpClient)
	}

	clock := o.clock
	if clock == nil {
		clock = clockFunc(time.Now)
	}

	return &App{
		logger:     logger,
		secrets:    secrets,
		models:     models,
		clock:      clock,
		httpClient: httpClient,
		jobs:       job.New(),
		sinks:      o.progressSinks,
		Config:     rc,
		Presets:    presets,
	}, nil
}

// Submit starts one conversion job and returns its ID immediately,
// plus a channel of its progress events. It fails fast with an error
// wrapping *job.BusyError if another job is already running — there is
// no queueing.
func (a *App) Submit(cfg config.RuntimeConfig, preset config.Preset) (JobID, <-chan ProgressEvent, error) {
	deps := pipeline.Deps{
		Secrets:    a.secrets,
		Models:     a.models,
		Now:        a.clock.Now,
		HTTPClient: a.httpClient,
	}

	id, broker, err := a.jobs.Submit(pipeline.Build(cfg, preset, deps))
	if err != nil {
		return "", nil, err
	}

	internalCh, sub := broker.Subscribe()
	out := make(chan ProgressEvent, cap(internalCh))
	go func() {
		defer close(out)
		for ev := range internalCh {
			pub := toPublicProgress(ev)
			pub.DroppedEvents = sub.Dropped()
			for _, sink := range a.sinks {
				sink.OnProgress(pub)
			}
			out <- pub
		}
	}()

	return JobID(id), out, nil
}

// Cancel signals the given job to unwind at its next stage boundary.
// It is a no-op if id does not name the currently active job.
func (a *App) Cancel(id JobID) {
	a.jobs.Cancel(job.ID(id))
}

// ActiveJobID reports the currently running job, if any.
func (a *App) ActiveJobID() (JobID, bool) {
	id, ok := a.jobs.ActiveJobID()
	return JobID(id), ok
}

// SaveConfig persists presets and UI state, preserving whatever
// runtime section is already on disk.
func (a *App) SaveConfig(presets []config.Preset, ui map[string]any) error {
	return config.SavePresetsAndUI(presets, ui)
}

// SetSecret stores plaintext under label and returns a handle safe to
// persist in config.toml.
func (a *App) SetSecret(label, plaintext string) (*secret.Handle, error) {
	return a.secrets.Set(label, plaintext)
}

// SaveRuntimeConfig persists cfg's runtime knobs and the current
// preset set, preserving whatever UI section is already on disk.
func (a *App) SaveRuntimeConfig(cfg config.RuntimeConfig) error {
	return config.SaveRuntime(cfg, a.Presets)
}

// ClearSecret removes the credential referenced by handle from its
// backing store.
func (a *App) ClearSecret(handle *secret.Handle) error {
	return a.secrets.Clear(handle)
}

// ResolveModel resolves a requested model identifier (or "auto")
// against the OpenRouter catalog.
func (a *App) ResolveModel(ctx context.Context, requested string, freeOnly bool) (catalog.Entry, error) {
	return a.models.ResolveModel(ctx, requested, freeOnly)
}

// toPublicProgress converts an internal/job.Event to the public
// ProgressEvent.
func toPublicProgress(ev job.Event) ProgressEvent {
	return ProgressEvent{
		JobID:      JobID(ev.JobID),
		ElapsedMS:  ev.ElapsedMS,
		Kind:       ProgressKind(ev.Kind),
		Stage:      StageName(ev.Stage),
		Message:    ev.Message,
		Diff:       ev.Diff,
		OutputPath: ev.OutputPath,
		ErrorKind:  ErrorKind(ev.ErrorKind),
	}
}
