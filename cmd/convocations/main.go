// Command convocations converts verbose game chat-client transcripts
// into clean narrative-style text documents, optionally corrected by
// an external LLM. See root.go for the flag surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/convocations/convocations/internal/logging"
)

func main() {
	os.Exit(run0())
}

// run0 wires process-global state (signals, logging) and translates a
// returned error into an exit code. Split from main so tests could
// exercise run() directly if a future package needed to; kept in the
// same shape as the teacher's own main/run0/run split.
func run0() int {
	logPath, closer, err := logging.Init(logging.FileAndStderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging: "+err.Error())
		return exitInternal
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := slog.Default()
	if logPath != "" {
		logger.Debug("logging to file", "path", logPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code, err := run(ctx, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
	}
	return code
}

func run(ctx context.Context, logger *slog.Logger) (int, error) {
	cmd := newRootCommand(logger)
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		return exitCodeFor(err), err
	}
	return exitSuccess, nil
}
