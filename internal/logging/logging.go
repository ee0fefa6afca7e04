// Package logging installs the process-wide slog logger. Grounded on
// the original's logging.rs LoggingDestination enum (ported from
// tracing/tracing-appender to log/slog, matching the teacher's own
// logging library choice) and cmd/akashi/main.go's
// slog.NewJSONHandler/slog.SetDefault idiom.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/convocations/convocations/internal/paths"
)

// Destination controls which sinks receive log records.
type Destination int

const (
	// FileAndStderr writes JSON records to the log file and
	// human-readable records to stderr. The default for interactive
	// CLI runs.
	FileAndStderr Destination = iota
	// FileOnly writes only to the log file.
	FileOnly
	// StderrOnly writes only human-readable records to stderr,
	// primarily for tests or ad-hoc tool invocations.
	StderrOnly
)

// Init installs the default slog.Logger for dest and returns the log
// file path, if one was opened. The caller owns the returned
// io.Closer (if non-nil) and should close it before the process
// exits.
func Init(dest Destination) (logPath string, closer io.Closer, err error) {
	level := slog.LevelInfo
	if lvl := os.Getenv("CONVOCATIONS_LOG_LEVEL"); lvl != "" {
		if parsed, ok := parseLevel(lvl); ok {
			level = parsed
		}
	}

	var handlers []slog.Handler

	if dest == FileAndStderr || dest == FileOnly {
		dir := filepath.Join(paths.ConfigDir(), "logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create log directory: %w", err)
		}
		logPath = filepath.Join(dir, "convocations.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return "", nil, fmt.Errorf("open log file: %w", err)
		}
		closer = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	if dest == FileAndStderr || dest == StderrOnly {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	slog.SetDefault(slog.New(fanoutHandler{handlers: handlers}))
	return logPath, closer, nil
}

func parseLevel(s string) (slog.Level, bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return lvl, true
}
