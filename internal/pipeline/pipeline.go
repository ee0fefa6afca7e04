// Package pipeline wires the individually-tested stages (window
// resolution, parsing, cleanup, formatting, LLM correction, diffing)
// into the single linear job spec.md §9 describes: a sequence of pure
// `fn(frame) -> frame` transformations plus one I/O-bound stage.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/convocations/convocations/internal/catalog"
	"github.com/convocations/convocations/internal/cleanup"
	"github.com/convocations/convocations/internal/config"
	"github.com/convocations/convocations/internal/diffgen"
	"github.com/convocations/convocations/internal/formatter"
	"github.com/convocations/convocations/internal/job"
	"github.com/convocations/convocations/internal/llm"
	"github.com/convocations/convocations/internal/logline"
	"github.com/convocations/convocations/internal/secret"
	"github.com/convocations/convocations/internal/window"
)

// SecretResolver is the narrow slice of internal/secret.Store the
// pipeline needs: looking up a stored credential's plaintext. Defined
// here (rather than depending on the concrete *secret.Store) so the
// root package can substitute any implementation behind WithSecretStore.
type SecretResolver interface {
	Get(handle *secret.Handle) (string, bool, error)
}

// ModelResolver is the narrow slice of internal/catalog.Resolver the
// pipeline needs.
type ModelResolver interface {
	ResolveModel(ctx context.Context, requested string, freeOnly bool) (catalog.Entry, error)
}

// Deps are the pluggable seams a job needs beyond pure computation.
type Deps struct {
	Secrets SecretResolver
	Models  ModelResolver
	Now     func() time.Time

	// HTTPClient overrides the LLM client's transport. Tests use this to
	// redirect requests to a local httptest server, since llm.Client has
	// no injectable base URL.
	HTTPClient *http.Client
}

// frame threads state through the stage sequence. Each stage function
// takes the frame produced by the previous one and returns the next.
type frame struct {
	events []logline.Event
	text   string
}

// Build returns a job.RunFunc closed over cfg, preset, and deps, ready
// to hand to job.Runtime.Submit.
func Build(cfg config.RuntimeConfig, preset config.Preset, deps Deps) job.RunFunc {
	return func(ctx context.Context, emit func(job.Event)) error {
		return run(ctx, cfg, preset, deps, emit)
	}
}

func run(ctx context.Context, cfg config.RuntimeConfig, preset config.Preset, deps Deps, emit func(job.Event)) error {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageResolve})
	win, loc, err := resolveWindow(cfg, preset, now())
	if err != nil {
		emit(job.Event{Kind: job.EventFailed, ErrorKind: job.ErrorInvalidWindow, Message: err.Error()})
		return nil
	}

	outPath := outputPath(cfg, preset, win)

	if cfg.DryRun {
		emit(job.Event{
			Kind:       job.EventCompleted,
			OutputPath: outPath,
			Message:    fmt.Sprintf("dry run: resolved window [%s, %s), would write %s", win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339), outPath),
		})
		return nil
	}
	emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageResolve})

	if ctx.Err() != nil {
		return cancelled(emit)
	}

	emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageParse})
	f, err := loadEvents(cfg.InputPath, loc, win)
	if err != nil {
		emit(job.Event{Kind: job.EventFailed, ErrorKind: job.ErrorIO, Message: err.Error()})
		return nil
	}
	if len(f.events) == 0 {
		emit(job.Event{
			Kind:      job.EventFailed,
			ErrorKind: job.ErrorEmptyWindow,
			Message:   fmt.Sprintf("no events fell inside the resolved window [%s, %s)", win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339)),
		})
		return nil
	}
	emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageParse})

	if ctx.Err() != nil {
		return cancelled(emit)
	}

	if cfg.Cleanup {
		emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageCleanup})
		f = applyCleanup(f)
		emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageCleanup})
	}

	if len(f.events) == 0 {
		emit(job.Event{Kind: job.EventFailed, ErrorKind: job.ErrorEmptyWindow, Message: "every event was empty after cleanup"})
		return nil
	}

	if ctx.Err() != nil {
		return cancelled(emit)
	}

	if cfg.FormatDialogue {
		emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageFormat})
		f = applyFormat(f)
		emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageFormat})
	} else {
		f = applyRawJoin(f)
	}

	preLLM := f.text

	if ctx.Err() != nil {
		return cancelled(emit)
	}

	finalText := preLLM
	llmApplied := false

	if cfg.UseLLM {
		client, ok, warnMsg := resolveLLMClient(ctx, cfg, deps)
		if !ok {
			emit(job.Event{Kind: job.EventInfo, Message: warnMsg})
		} else {
			emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageCorrect})
			result := llm.Correct(ctx, client, preLLM, llm.MaxChunkChars)
			for _, w := range result.Warnings {
				emit(job.Event{Kind: job.EventInfo, Message: w.Message})
			}
			finalText = result.Text
			llmApplied = result.Applied
			emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageCorrect})
		}
	}

	if ctx.Err() != nil {
		return cancelled(emit)
	}

	if cfg.UseLLM && llmApplied && cfg.ShowDiff {
		emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageDiff})
		diffText, err := diffgen.Unified(preLLM, finalText, "before", "after")
		if err == nil && diffText != "" {
			emit(job.Event{Kind: job.EventDiff, Diff: diffText})
		}
		emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageDiff})

		if ctx.Err() != nil {
			return cancelled(emit)
		}
	}

	emit(job.Event{Kind: job.EventStageBegin, Stage: job.StageWrite})
	if err := writeOutput(outPath, finalText, preLLM, llmApplied, cfg.KeepOriginalOutput); err != nil {
		emit(job.Event{Kind: job.EventFailed, ErrorKind: job.ErrorIO, Message: err.Error()})
		return nil
	}
	emit(job.Event{Kind: job.EventStageEnd, Stage: job.StageWrite})

	emit(job.Event{Kind: job.EventCompleted, OutputPath: outPath})
	return nil
}

func cancelled(emit func(job.Event)) error {
	emit(job.Event{Kind: job.EventFailed, ErrorKind: job.ErrorCancelled, Message: "job cancelled"})
	return nil
}

func resolveWindow(cfg config.RuntimeConfig, preset config.Preset, now time.Time) (window.Window, *time.Location, error) {
	loc, err := time.LoadLocation(preset.Timezone)
	if err != nil {
		return window.Window{}, nil, err
	}

	if cfg.ExplicitStart != "" && cfg.ExplicitEnd != "" {
		w, err := window.ResolveExplicit(cfg.ExplicitStart, cfg.ExplicitEnd, loc)
		return w, loc, err
	}

	w, err := window.Resolve(preset, cfg.WeeksAgo, cfg.DurationOverride, now)
	return w, loc, err
}

func loadEvents(path string, loc *time.Location, win window.Window) (frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return frame{}, fmt.Errorf("read input %s: %w", path, err)
	}

	events := logline.Parse(raw, loc)
	events = logline.FilterRoleplay(events)
	events = logline.Reassemble(events, win.Start, win.End)
	events = logline.FilterWindow(events, win.Start, win.End)

	for i := range events {
		events[i].Body = strings.TrimLeft(events[i].Body, " ")
	}

	return frame{events: events}, nil
}

func applyCleanup(f frame) frame {
	out := make([]logline.Event, 0, len(f.events))
	for _, ev := range f.events {
		if body, ok := cleanup.Body(ev.Body); ok {
			ev.Body = body
			out = append(out, ev)
		}
	}
	f.events = out
	return f
}

func applyFormat(f frame) frame {
	lines := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		lines = append(lines, formatter.Line(ev.Speaker, ev.Channel, ev.Body))
	}
	f.text = formatter.Document(lines)
	return f
}

// applyRawJoin is used when format_dialogue is off: bodies pass
// through as plain lines, one per event, without the "Speaker says"
// dialogue template.
func applyRawJoin(f frame) frame {
	lines := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		lines = append(lines, strings.TrimSpace(ev.Body))
	}
	f.text = formatter.Document(lines)
	return f
}

func resolveLLMClient(ctx context.Context, cfg config.RuntimeConfig, deps Deps) (*llm.Client, bool, string) {
	if cfg.OpenRouterKey == nil {
		return nil, false, "LLM enabled but no credential is configured, skipping correction"
	}
	plaintext, ok, err := deps.Secrets.Get(cfg.OpenRouterKey)
	if err != nil || !ok || plaintext == "" {
		return nil, false, "LLM enabled but the stored credential could not be resolved, skipping correction"
	}

	entry, err := deps.Models.ResolveModel(ctx, cfg.ModelIdentifier, cfg.FreeModelsOnly)
	if err != nil {
		return nil, false, "LLM enabled but no usable model could be resolved (" + err.Error() + "), skipping correction"
	}

	client := llm.NewClient(plaintext, entry.Slug)
	if deps.HTTPClient != nil {
		client.HTTPClient = deps.HTTPClient
	}
	return client, true, ""
}

func outputPath(cfg config.RuntimeConfig, preset config.Preset, win window.Window) string {
	if cfg.OutputPathOverride != "" {
		return cfg.OutputPathOverride
	}

	loc, err := time.LoadLocation(preset.Timezone)
	if err != nil {
		loc = time.UTC
	}
	filename := preset.FilePrefix + "-" + win.Start.In(loc).Format("010206") + ".txt"

	dir := "."
	switch {
	case cfg.OutputDirectoryOverride != "":
		dir = cfg.OutputDirectoryOverride
	case os.Getenv("CONVOCATIONS_WORKING_DIR") != "":
		dir = os.Getenv("CONVOCATIONS_WORKING_DIR")
	}
	return filepath.Join(dir, filename)
}

// writeOutput requires outPath's parent directory to already exist.
// spec.md §3's RuntimeConfig invariant is that a file-target override
// names a directory the operator has already prepared; a missing
// parent is a fatal IoError (§7), not something the tool silently
// papers over by creating directories on the operator's behalf.
func writeOutput(outPath, finalText, preLLM string, llmApplied, keepOriginal bool) error {
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("output directory %s does not exist", dir)
			}
			return fmt.Errorf("stat output directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("output directory %s is not a directory", dir)
		}
	}

	if err := os.WriteFile(outPath, []byte(finalText), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	unedited := companionPath(outPath)
	if llmApplied && keepOriginal {
		if err := os.WriteFile(unedited, []byte(preLLM), 0o644); err != nil {
			return fmt.Errorf("write unedited companion: %w", err)
		}
	} else {
		_ = os.Remove(unedited)
	}
	return nil
}

func companionPath(outPath string) string {
	ext := filepath.Ext(outPath)
	base := strings.TrimSuffix(outPath, ext)
	return base + "_unedited" + ext
}
