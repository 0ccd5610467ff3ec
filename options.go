package jobsched

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// ErrInvalidOptions is wrapped by every error returned from Options.Validate.
var ErrInvalidOptions = errors.New("jobsched: invalid options")

// MatchRule decides whether a worker mask accepts a job type.
type MatchRule int

const (
	// MatchSubset accepts a job when every bit of its type is set in the
	// worker mask. A zero type matches nothing.
	MatchSubset MatchRule = iota

	// MatchTier treats masks as ordered capability tiers: a job fits any
	// worker whose mask is numerically greater or equal to its type.
	MatchTier
)

func (r MatchRule) String() string {
	switch r {
	case MatchSubset:
		return "subset"
	case MatchTier:
		return "tier"
	default:
		return "unknown"
	}
}

// FullPolicy selects what Submit does when the chosen queue is full.
type FullPolicy int

const (
	// OverwriteOldest evicts the oldest queued job to make room.
	OverwriteOldest FullPolicy = iota

	// RejectNew leaves the queue untouched and returns ErrQueueFull.
	RejectNew
)

func (p FullPolicy) String() string {
	switch p {
	case OverwriteOldest:
		return "overwrite"
	case RejectNew:
		return "reject"
	default:
		return "unknown"
	}
}

// WorkerGroup is a pool of identically capable workers.
type WorkerGroup struct {
	Mask  JobType
	Count int
}

// Options configure a Scheduler.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Groups lists the worker pools. Worker indices follow group order.
	Groups []WorkerGroup

	// QueueCapacity is applied to every worker's queue.
	QueueCapacity int

	Match      MatchRule
	FullPolicy FullPolicy

	// PinWorkers locks each worker to an OS thread and, on Linux, to a
	// single CPU.
	PinWorkers bool

	// Retry is the default policy for jobs without their own.
	Retry RetryPolicy

	// OnInternalError receives scheduler-side failures such as
	// unroutable or evicted jobs. Must be safe for concurrent use.
	OnInternalError func(error)

	// OnJobError receives errors returned by jobs and recovered panics.
	// Must be safe for concurrent use.
	OnJobError func(error)
}

func (o *Options) FillDefaults() {
	if len(o.Groups) == 0 {
		o.Groups = []WorkerGroup{{Mask: AnyJob, Count: runtime.GOMAXPROCS(0)}}
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = DefaultQueueCapacity
	}
	o.Retry.fillDefaults()
}

// Validate reports every problem in o at once.
func (o *Options) Validate() error {
	var err error
	for i, g := range o.Groups {
		if g.Count <= 0 {
			err = multierr.Append(err, fmt.Errorf("%w: group %d: worker count %d must be positive", ErrInvalidOptions, i, g.Count))
		}
		if g.Mask == 0 {
			err = multierr.Append(err, fmt.Errorf("%w: group %d: mask must not be zero", ErrInvalidOptions, i))
		}
	}
	if o.QueueCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: queue capacity %d must be positive", ErrInvalidOptions, o.QueueCapacity))
	}
	if o.Match != MatchSubset && o.Match != MatchTier {
		err = multierr.Append(err, fmt.Errorf("%w: unknown match rule %d", ErrInvalidOptions, o.Match))
	}
	if o.FullPolicy != OverwriteOldest && o.FullPolicy != RejectNew {
		err = multierr.Append(err, fmt.Errorf("%w: unknown full policy %d", ErrInvalidOptions, o.FullPolicy))
	}
	return err
}

// TotalWorkers returns the sum of all group counts.
func (o *Options) TotalWorkers() int {
	n := 0
	for _, g := range o.Groups {
		n += g.Count
	}
	return n
}
