package job

import "time"

// Stage names, in pipeline order. Not every job runs every stage: a
// dry run stops after Resolve, and Correct/Diff run only when the LLM
// toggle is on and a credential resolves.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageParse   Stage = "parse"
	StageCleanup Stage = "cleanup"
	StageFormat  Stage = "format"
	StageCorrect Stage = "correct"
	StageDiff    Stage = "diff"
	StageWrite   Stage = "write"
)

// ErrorKind classifies a terminal job failure, mirroring the error
// kinds a caller needs to branch on (CLI exit code, structured API
// response).
type ErrorKind string

const (
	ErrorArgument      ErrorKind = "argument"
	ErrorConfig        ErrorKind = "config"
	ErrorInvalidWindow ErrorKind = "invalid_window"
	ErrorIO            ErrorKind = "io"
	ErrorEmptyWindow   ErrorKind = "empty_window"
	ErrorSecret        ErrorKind = "secret"
	ErrorCancelled     ErrorKind = "cancelled"
	ErrorInternal      ErrorKind = "internal"
)

// Event is one message on a job's progress stream. Exactly one field
// group is populated per Kind; job identifier and elapsed time are
// always set.
type Event struct {
	JobID      ID
	ElapsedMS  int64
	Kind       EventKind
	Stage      Stage     // stage-begin, stage-end
	Message    string    // info
	Diff       string    // diff
	OutputPath string    // completed
	ErrorKind  ErrorKind // failed
}

type EventKind string

const (
	EventQueued      EventKind = "queued"
	EventStageBegin  EventKind = "stage-begin"
	EventStageEnd    EventKind = "stage-end"
	EventInfo        EventKind = "info"
	EventDiff        EventKind = "diff"
	EventCompleted   EventKind = "completed"
	EventFailed      EventKind = "failed"
)

func (e EventKind) isTerminal() bool {
	return e == EventCompleted || e == EventFailed
}

// clock lets tests substitute a deterministic elapsed-time source.
type clock struct {
	start time.Time
	now   func() time.Time
}

func newClock(now func() time.Time) clock {
	if now == nil {
		now = time.Now
	}
	return clock{start: now(), now: now}
}

func (c clock) elapsedMS() int64 {
	return c.now().Sub(c.start).Milliseconds()
}
