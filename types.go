package convocations

import "github.com/convocations/convocations/internal/job"

// JobID identifies one submitted conversion job. A distinct type from
// job.ID so callers outside this module never need to import
// internal/job directly.
type JobID string

// StageName is one step of the conversion pipeline, in execution order.
type StageName string

const (
	StageResolve StageName = StageName(job.StageResolve)
	StageParse   StageName = StageName(job.StageParse)
	StageCleanup StageName = StageName(job.StageCleanup)
	StageFormat  StageName = StageName(job.StageFormat)
	StageCorrect StageName = StageName(job.StageCorrect)
	StageDiff    StageName = StageName(job.StageDiff)
	StageWrite   StageName = StageName(job.StageWrite)
)

// ErrorKind classifies why a job ended in ProgressFailed.
type ErrorKind string

const (
	ErrorArgument      ErrorKind = ErrorKind(job.ErrorArgument)
	ErrorConfig        ErrorKind = ErrorKind(job.ErrorConfig)
	ErrorInvalidWindow ErrorKind = ErrorKind(job.ErrorInvalidWindow)
	ErrorIO            ErrorKind = ErrorKind(job.ErrorIO)
	ErrorEmptyWindow   ErrorKind = ErrorKind(job.ErrorEmptyWindow)
	ErrorSecret        ErrorKind = ErrorKind(job.ErrorSecret)
	ErrorCancelled     ErrorKind = ErrorKind(job.ErrorCancelled)
	ErrorInternal      ErrorKind = ErrorKind(job.ErrorInternal)
)

// ProgressKind discriminates the ProgressEvent variants, mirroring
// job.EventKind at the public boundary.
type ProgressKind string

const (
	ProgressQueued     ProgressKind = "queued"
	ProgressStageBegin ProgressKind = "stage-begin"
	ProgressStageEnd   ProgressKind = "stage-end"
	ProgressInfo       ProgressKind = "info"
	ProgressDiff       ProgressKind = "diff"
	ProgressCompleted  ProgressKind = "completed"
	ProgressFailed     ProgressKind = "failed"
)

// ProgressEvent is the public representation of one message on a
// job's progress stream. It is a curated view of internal/job.Event
// whose fields use only types declared in this package, safe to use
// from outside this module — the same boundary shape the teacher draws
// around Decision/Conflict in its own types.go. (This file does import
// internal/job, for the StageName and ErrorKind constant values.)
type ProgressEvent struct {
	JobID      JobID
	ElapsedMS  int64
	Kind       ProgressKind
	Stage      StageName
	Message    string
	Diff       string
	OutputPath string
	ErrorKind  ErrorKind

	// DroppedEvents counts how many progress events this subscriber's
	// buffer could not hold and had to discard before this one, per
	// spec.md §5: a slow consumer's gaps must be surfaced, never
	// silently swallowed.
	DroppedEvents int64
}
