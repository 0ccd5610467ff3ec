package jobsched

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnroutable is reported when no worker group accepts a job's type.
	// The job is dropped.
	ErrUnroutable = errors.New("jobsched: no worker accepts job type")

	// ErrQueueFull is returned by Submit under the RejectNew policy when
	// the selected queue has no free slot.
	ErrQueueFull = errors.New("jobsched: queue is full")

	// ErrClosed is returned when submitting after Shutdown has begun.
	ErrClosed = errors.New("jobsched: scheduler closed")

	// ErrNilFunc is returned when a submitted Job has a nil Fn.
	ErrNilFunc = errors.New("jobsched: job func is nil")

	// ErrEmptyJob is reported when a worker dequeues a job without a body.
	ErrEmptyJob = errors.New("jobsched: dequeued empty job")
)

// JobType is the routing tag of a job. Each set bit names a capability
// the executing worker must have.
type JobType uint64

// AnyJob is a worker mask accepting every job type.
const AnyJob JobType = ^JobType(0)

func (t JobType) String() string { return fmt.Sprintf("%#b", uint64(t)) }

// JobFunc is the function executed by a worker for a given job payload.
type JobFunc[T any] func(T) error

// Job represents a single unit of work submitted to the scheduler.
//
// Payload is passed to Fn when executed. Meta is optional: its Ctx is
// used for logging and for cancelling retry waits, CleanupFunc runs
// after the job finishes, panics included. Retry overrides the
// scheduler's default retry policy for this job only.
type Job[T any] struct {
	ID      uuid.UUID
	Type    JobType
	Payload T
	Fn      JobFunc[T]
	Meta    *JobMeta
	Retry   *RetryPolicy
}

// JobMeta carries optional per-job context and a cleanup hook.
// A nil Ctx falls back to the scheduler's context.
type JobMeta struct {
	Ctx         context.Context
	CleanupFunc func()
}

// NewJob builds a job with a fresh ID.
func NewJob[T any](typ JobType, payload T, fn JobFunc[T]) Job[T] {
	return Job[T]{
		ID:      uuid.New(),
		Type:    typ,
		Payload: payload,
		Fn:      fn,
	}
}

func (j *Job[T]) ctx() context.Context {
	if j.Meta != nil && j.Meta.Ctx != nil {
		return j.Meta.Ctx
	}
	return nil
}

func (j *Job[T]) cleanup() {
	if j.Meta != nil && j.Meta.CleanupFunc != nil {
		j.Meta.CleanupFunc()
	}
}

// JobPanicError wraps a value recovered from a panicking job.
type JobPanicError struct {
	JobID uuid.UUID
	Value any
}

func (e *JobPanicError) Error() string {
	return fmt.Sprintf("jobsched: job %s panicked: %v", e.JobID, e.Value)
}

// JobError wraps the error returned by the last attempt of a failed job.
type JobError struct {
	JobID    uuid.UUID
	Attempts int
	Err      error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("jobsched: job %s failed after %d attempt(s): %v", e.JobID, e.Attempts, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
