package main

import (
	"errors"

	"github.com/convocations/convocations/internal/catalog"
	"github.com/convocations/convocations/internal/job"
	"github.com/convocations/convocations/internal/window"
)

// Exit codes, per spec.md's external-interface contract.
const (
	exitSuccess       = 0
	exitInternal      = 1
	exitArgument      = 2
	exitInputNotFound = 3
	exitLLMRequired   = 4
)

// exitError pairs a returned error with the process exit code it maps
// to, so cobra's error-returning RunE functions can carry a specific
// code all the way out to main without main re-deriving it from the
// error's dynamic type.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor classifies an error returned from cmd.Execute() into
// one of the five documented exit codes. Errors explicitly tagged via
// newExitError carry their code; everything else is classified by
// type, falling back to exitInternal for anything unrecognized (a
// runtime invariant violation, never a well-formed user-facing kind).
func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var busy *job.BusyError
	if errors.As(err, &busy) {
		return exitInternal
	}

	var argErr *catalog.ArgumentError
	if errors.As(err, &argErr) {
		return exitArgument
	}

	var winErr *window.InvalidWindowError
	if errors.As(err, &winErr) {
		return exitArgument
	}

	switch jobErrorKind(err) {
	case job.ErrorArgument, job.ErrorConfig, job.ErrorInvalidWindow:
		return exitArgument
	case job.ErrorIO, job.ErrorEmptyWindow:
		return exitInputNotFound
	case job.ErrorSecret:
		return exitLLMRequired
	}

	// Anything else is an unexpected failure. A cobra flag-parsing
	// failure (unknown flag, bad value) never lands here: root.go's
	// SetFlagErrorFunc already wraps it as exitArgument.
	return exitInternal
}

// jobErrorKind extracts the ErrorKind carried by a *job.Event forward
// -declared as an error via runFailedError below, or the zero value
// if err isn't one.
func jobErrorKind(err error) job.ErrorKind {
	var fe *runFailedError
	if errors.As(err, &fe) {
		return fe.kind
	}
	return ""
}

// runFailedError wraps a job's terminal failed event as a Go error so
// it can flow through cobra's RunE return path and be classified by
// exitCodeFor.
type runFailedError struct {
	kind    job.ErrorKind
	message string
}

func (e *runFailedError) Error() string { return e.message }
