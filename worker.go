package jobsched

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
)

// WorkerState is the lifecycle state of a single worker.
type WorkerState int32

const (
	WorkerRunning WorkerState = iota
	WorkerSleeping
	WorkerDraining
	WorkerTerminated
)

func (st WorkerState) String() string {
	switch st {
	case WorkerRunning:
		return "running"
	case WorkerSleeping:
		return "sleeping"
	case WorkerDraining:
		return "draining"
	case WorkerTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// pinToCPU is swapped in tests to force a startup failure.
var pinToCPU = PinToCPU

// worker owns one queue of the scheduler and is the only consumer
// of it. Any submitter may push into the queue and wake the worker.
type worker[T any, M MetricsPolicy] struct {
	index int
	mask  JobType
	sched *Scheduler[T, M]
	queue *workerQueue[T]

	sleeping atomic.Bool
	state    atomic.Int32

	// wakeCh holds at most one pending wake token. A Wake that lands
	// before the worker parks is kept until the worker reads it.
	wakeCh    chan struct{}
	readyOnce sync.Once
}

func newWorker[T any, M MetricsPolicy](index int, mask JobType, s *Scheduler[T, M], q *workerQueue[T]) *worker[T, M] {
	w := &worker[T, M]{
		index:  index,
		mask:   mask,
		sched:  s,
		queue:  q,
		wakeCh: make(chan struct{}, 1),
	}
	w.sleeping.Store(true)
	w.state.Store(int32(WorkerSleeping))
	return w
}

// Wake clears the sleep flag and signals the worker. It never blocks
// and is harmless when the worker is already awake.
func (w *worker[T, M]) Wake() {
	w.sleeping.Store(false)
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Sleep marks the worker's intent to idle. The actual wait happens in
// the run loop once the queue is empty.
func (w *worker[T, M]) Sleep() { w.sleeping.Store(true) }

func (w *worker[T, M]) State() WorkerState { return WorkerState(w.state.Load()) }

// run is the worker main loop. ready receives exactly one value if the
// worker gets as far as its first idle point or fails to start.
func (w *worker[T, M]) run(ready chan<- error) {
	s := w.sched
	defer s.wg.Done()
	defer w.state.Store(int32(WorkerTerminated))

	if s.opts.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCPU(w.index % runtime.NumCPU()); err != nil {
			ready <- fmt.Errorf("jobsched: pin worker %d: %w", w.index, err)
			return
		}
	}

	for !s.closing.Load() {
		job, ok := w.queue.pop()
		if !ok {
			w.park(ready)
			continue
		}
		w.runOne(job)
	}

	w.state.Store(int32(WorkerDraining))
	drained := 0
	for {
		job, ok := w.queue.pop()
		if !ok {
			break
		}
		w.runOne(job)
		drained++
	}
	if drained > 0 {
		lg.FromContext(s.ctx).Info("worker drained queue on shutdown",
			lg.Int("worker", w.index),
			lg.Int("jobs", drained),
		)
	}
}

// park blocks until the worker is woken. The shared idle counter
// covers exactly the time spent waiting.
func (w *worker[T, M]) park(ready chan<- error) {
	s := w.sched
	w.Sleep()
	w.state.Store(int32(WorkerSleeping))
	s.idle.Add(1)
	w.readyOnce.Do(func() { ready <- nil })

	<-w.wakeCh

	s.idle.Add(-1)
	w.state.Store(int32(WorkerRunning))
}

func (w *worker[T, M]) runOne(job Job[T]) {
	s := w.sched
	s.metrics.BatchDecQueued(1)
	if job.Fn == nil {
		lg.FromContext(s.ctx).Warn("dequeued empty job",
			lg.Int("worker", w.index),
			lg.String("job", job.ID.String()),
		)
		job.cleanup()
		s.reportInternalError(fmt.Errorf("%w: worker %d", ErrEmptyJob, w.index))
		return
	}
	s.execute(w, job)
}
