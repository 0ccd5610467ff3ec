package jobsched

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// cachePad is used to prevent false sharing between hot fields.
type cachePad = cpu.CacheLinePad

// MetricsPolicy defines hooks used by the scheduler to report
// queueing and execution activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking
type MetricsPolicy interface {

	// IncExecuted increments the executed jobs counter.
	IncExecuted()

	// IncQueued increments the queued jobs counter.
	IncQueued()

	// BatchDecQueued decrements the queued counter by n.
	BatchDecQueued(n int64)

	// IncDropped counts a job that was accepted by Submit but will never
	// run: unroutable, evicted from a full queue, or refused.
	IncDropped()

	// IncFailed counts a job whose last attempt returned an error or
	// panicked.
	IncFailed()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	// executed is the total number of jobs processed.
	executed atomic.Uint64
	_        cachePad

	// queued is the current number of jobs enqueued.
	queued atomic.Int64
	_      cachePad

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// Executed returns the total number of executed jobs.
func (m *AtomicMetrics) Executed() uint64 {
	return m.executed.Load()
}

// Queued returns the current number of queued jobs.
func (m *AtomicMetrics) Queued() int64 {
	return m.queued.Load()
}

// Dropped returns the number of jobs that were dropped.
func (m *AtomicMetrics) Dropped() uint64 {
	return m.dropped.Load()
}

// Failed returns the number of jobs that ended with an error or panic.
func (m *AtomicMetrics) Failed() uint64 {
	return m.failed.Load()
}

func (m *AtomicMetrics) IncExecuted() { m.executed.Add(1) }

func (m *AtomicMetrics) IncQueued() { m.queued.Add(1) }

// BatchDecQueued decrements the queued jobs counter by n.
func (m *AtomicMetrics) BatchDecQueued(n int64) { m.queued.Add(-n) }

func (m *AtomicMetrics) IncDropped() { m.dropped.Add(1) }

func (m *AtomicMetrics) IncFailed() { m.failed.Add(1) }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncExecuted()           {}
func (m *NoopMetrics) IncQueued()             {}
func (m *NoopMetrics) BatchDecQueued(n int64) {}
func (m *NoopMetrics) IncDropped()            {}
func (m *NoopMetrics) IncFailed()             {}
