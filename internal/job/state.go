// Package job implements the singleton pipeline job runtime: submit a
// pipeline RunFunc, observe its progress stream, and enforce the
// at-most-one-non-terminal-job-per-process invariant. Grounded on
// spec.md §9's design note ("implement as a state variable guarded by
// a mutex; the mutex is released during long work") and shaped after
// the teacher's internal/server/broker.go for the subscriber-map
// fan-out surrounding it.
package job

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ID identifies one submitted job.
type ID string

func newID() ID {
	return ID(uuid.NewString())
}

// State is the job's lifecycle: Queued -> Running(stage) -> {Completed | Failed}.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// BusyError is returned by Submit when a non-terminal job already
// exists. There is no queueing — the caller must retry later.
type BusyError struct {
	ActiveJobID ID
}

func (e *BusyError) Error() string {
	return "job: another job is already running: " + string(e.ActiveJobID)
}

// Runtime owns the singleton job slot. The zero value is an idle
// Runtime ready to use; New returns the same.
type Runtime struct {
	run func(ctx context.Context, id ID, cfg RunFunc, emit func(Event))

	mu     sync.Mutex
	active *activeJob
}

// activeJob tracks the single non-terminal job. The mutex protecting
// Runtime is held only across state transitions, never across the
// execution of a stage — long work runs with the lock released, per
// spec.md §9.
type activeJob struct {
	id     ID
	state  State
	cancel context.CancelFunc
}

// RunFunc executes one job's pipeline, emitting progress via emit and
// returning the terminal error (nil on success). Runtime supplies its
// own emit wrapper that stamps JobID and elapsed time; RunFunc's emit
// callback only needs to fill in Kind and the payload fields.
type RunFunc func(ctx context.Context, emit func(Event)) error

// New returns a ready-to-use Runtime.
func New() *Runtime {
	return &Runtime{active: nil}
}

// Submit starts fn as a new background job and returns its ID
// immediately. It fails fast with *BusyError if a job is already
// non-terminal. work is invoked on a fresh goroutine; its progress is
// delivered to subscribers registered via the returned Broker's
// Subscribe.
func (r *Runtime) Submit(work RunFunc) (ID, *Broker, error) {
	r.mu.Lock()
	if r.active != nil && r.active.state != StateCompleted && r.active.state != StateFailed {
		busy := r.active.id
		r.mu.Unlock()
		return "", nil, &BusyError{ActiveJobID: busy}
	}

	id := newID()
	ctx, cancel := context.WithCancel(context.Background())
	broker := newBroker()
	r.active = &activeJob{id: id, state: StateQueued, cancel: cancel}
	r.mu.Unlock()

	c := newClock(nil)
	emit := func(ev Event) {
		ev.JobID = id
		ev.ElapsedMS = c.elapsedMS()
		if ev.Kind == EventStageBegin {
			r.setState(id, StateRunning)
		}
		broker.publish(ev)
		if ev.Kind.isTerminal() {
			if ev.Kind == EventCompleted {
				r.setState(id, StateCompleted)
			} else {
				r.setState(id, StateFailed)
			}
			broker.close()
		}
	}

	emit(Event{Kind: EventQueued})

	go func() {
		if err := work(ctx, emit); err != nil {
			// A RunFunc that returns an error without itself emitting a
			// terminal event is a bug in that stage; surface it as an
			// internal failure rather than hanging observers forever.
			emit(Event{Kind: EventFailed, ErrorKind: ErrorInternal, Message: err.Error()})
		}
	}()

	return id, broker, nil
}

// Cancel signals the active job (if its ID matches) to unwind at the
// next stage boundary. It is a no-op if id does not name the active
// job or the job has already reached a terminal state.
func (r *Runtime) Cancel(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.id == id {
		r.active.cancel()
	}
}

func (r *Runtime) setState(id ID, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.id == id {
		r.active.state = s
	}
}

// ActiveJobID reports the currently active (non-terminal) job, if any.
func (r *Runtime) ActiveJobID() (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.state == StateCompleted || r.active.state == StateFailed {
		return "", false
	}
	return r.active.id, true
}
