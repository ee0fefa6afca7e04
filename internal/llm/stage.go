package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Warning is a non-fatal event the correction stage surfaces without
// failing the job, per spec.md §4.G/§7.
type Warning struct {
	Phase   Phase
	Message string
}

// Result is what the correction stage hands back to the pipeline.
type Result struct {
	// Text is the corrected narrative, or the original text unchanged
	// when the stage aborted or every chunk fell back.
	Text string
	// Applied is true when at least one chunk was actually rewritten
	// by the model — the pipeline only produces a diff and an
	// *_unedited companion file when this is true.
	Applied  bool
	Warnings []Warning
}

const (
	maxRetriesPerChunk = 2
	retryBaseDelay     = 500 * time.Millisecond
)

// Correct runs the chunked correction pass described in spec.md §4.G.
// Chunks are processed sequentially, in order, to preserve ordering
// and respect the model's rate limits. An authentication rejection on
// the very first chunk aborts the whole stage and returns the
// original text unchanged: a bad credential will fail every
// subsequent chunk identically, so there is nothing to gain from
// pressing on. A terminal failure on any later chunk falls back to
// that chunk's original text and keeps going.
func Correct(ctx context.Context, client *Client, text string, maxChunkChars int) Result {
	chunks := Split(text, maxChunkChars)
	if len(chunks) == 0 {
		return Result{Text: text}
	}

	corrected := make([]string, len(chunks))
	var warnings []Warning
	applied := false

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return Result{Text: text, Warnings: warnings, Applied: applied}
		}

		var reply string
		err := WithRetry(ctx, maxRetriesPerChunk, retryBaseDelay, func() error {
			r, callErr := client.Correct(ctx, chunk)
			reply = r
			return callErr
		})

		if err != nil {
			var llmErr *Error
			phase := Phase(PhaseNetwork)
			if errors.As(err, &llmErr) {
				phase = llmErr.Phase
			}

			if phase == PhaseAuth && i == 0 {
				return Result{
					Text: text,
					Warnings: []Warning{{
						Phase:   PhaseAuth,
						Message: "authentication rejected on the first chunk, LLM correction skipped",
					}},
					Applied: false,
				}
			}

			corrected[i] = chunk
			warnings = append(warnings, Warning{
				Phase:   phase,
				Message: "chunk " + strconv.Itoa(i+1) + " of " + strconv.Itoa(len(chunks)) + " failed after retries, using original text",
			})
			continue
		}

		corrected[i] = cleanMarkdownFence(reply)
		applied = true
	}

	return Result{Text: strings.Join(corrected, "\n"), Applied: applied, Warnings: warnings}
}

func cleanMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

