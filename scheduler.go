package jobsched

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/google/uuid"
)

// Scheduler owns a fixed set of workers, one bounded queue per worker,
// and routes submitted jobs to the least loaded compatible queue.
//
// The queue and worker slices are built once by NewScheduler and never
// resized; index i in both refers to the same worker.
type Scheduler[T any, M MetricsPolicy] struct {
	ctx     context.Context
	opts    Options
	metrics M

	queues  []*workerQueue[T]
	workers []*worker[T, M]

	idle    atomic.Int32
	closing atomic.Bool
	started atomic.Bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{} // closed once every worker has returned
}

// NewScheduler builds the queues, spawns every worker and returns once
// all of them have reached their first idle point.
//
// ctx is the base logging context of the scheduler; cancelling it
// before the workers are ready aborts construction. On any startup
// failure the already spawned workers are stopped and no scheduler is
// returned.
func NewScheduler[M MetricsPolicy, T any](ctx context.Context, metrics M, opts Options) (*Scheduler[T, M], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.FillDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Groups = append([]WorkerGroup(nil), opts.Groups...)

	logger := lg.FromContext(ctx)
	total := opts.TotalWorkers()
	if cpus := runtime.NumCPU(); total > cpus {
		logger.Warn("worker count exceeds hardware concurrency",
			lg.Int("workers", total),
			lg.Int("cpus", cpus),
		)
	}

	s := &Scheduler[T, M]{
		ctx:     ctx,
		opts:    opts,
		metrics: metrics,
		queues:  make([]*workerQueue[T], 0, total),
		workers: make([]*worker[T, M], 0, total),
		done:    make(chan struct{}),
	}
	for _, g := range opts.Groups {
		for range g.Count {
			q := newWorkerQueue[T](opts.QueueCapacity)
			s.queues = append(s.queues, q)
			s.workers = append(s.workers, newWorker(len(s.workers), g.Mask, s, q))
		}
	}

	ready := make(chan error, total)
	s.wg.Add(total)
	for _, w := range s.workers {
		go w.run(ready)
	}
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	if err := s.awaitReady(ctx, ready, total); err != nil {
		logger.Error("scheduler startup failed", lg.Any("error", err))
		s.Stop()
		return nil, err
	}

	logger.Info("scheduler ready",
		lg.Int("workers", total),
		lg.Int("groups", len(opts.Groups)),
		lg.Int("queue_capacity", opts.QueueCapacity),
		lg.String("match", opts.Match.String()),
		lg.String("full_policy", opts.FullPolicy.String()),
	)
	return s, nil
}

// awaitReady is the startup barrier: every worker reports once.
func (s *Scheduler[T, M]) awaitReady(ctx context.Context, ready <-chan error, total int) error {
	for range total {
		select {
		case err := <-ready:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Start wakes every worker. Jobs submitted before Start stay queued
// until it is called. Calling Start again only repeats the wake.
func (s *Scheduler[T, M]) Start() {
	if !s.started.Swap(true) {
		lg.FromContext(s.ctx).Info("scheduler started", lg.Int("workers", len(s.workers)))
	}
	for _, w := range s.workers {
		w.Wake()
	}
}

// CreateJob returns an empty job of the given type with a fresh ID.
// The caller fills in Fn and Payload before submitting it.
func (s *Scheduler[T, M]) CreateJob(typ JobType) Job[T] {
	return Job[T]{ID: uuid.New(), Type: typ}
}

// Submit places job on the least loaded queue whose worker accepts its
// type and wakes that worker.
//
// A job no worker accepts is logged, reported through OnInternalError
// and dropped; Submit returns ErrUnroutable. Under RejectNew a full
// queue yields ErrQueueFull; under OverwriteOldest the oldest queued
// job of that queue is evicted instead.
func (s *Scheduler[T, M]) Submit(job Job[T]) error {
	if s.closing.Load() {
		return ErrClosed
	}
	if job.Fn == nil {
		return ErrNilFunc
	}
	if ctx := job.ctx(); ctx != nil && ctx.Err() != nil {
		return fmt.Errorf("jobsched: job context done: %w", ctx.Err())
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	idx := s.pickQueue(job.Type)
	if idx < 0 {
		lg.FromContext(s.jobContext(&job)).Error("no worker accepts job type; dropping job",
			lg.String("job", job.ID.String()),
			lg.String("type", job.Type.String()),
		)
		s.metrics.IncDropped()
		err := fmt.Errorf("%w %s", ErrUnroutable, job.Type)
		s.reportInternalError(err)
		return err
	}

	old, evicted, err := s.queues[idx].push(job, s.opts.FullPolicy == RejectNew)
	if err != nil {
		s.metrics.IncDropped()
		return fmt.Errorf("%w: worker %d", err, idx)
	}
	s.metrics.IncQueued()

	if evicted {
		s.metrics.BatchDecQueued(1)
		s.metrics.IncDropped()
		lg.FromContext(s.jobContext(&old)).Warn("queue full; oldest job overwritten",
			lg.Int("worker", idx),
			lg.String("evicted", old.ID.String()),
			lg.String("job", job.ID.String()),
		)
		old.cleanup()
		s.reportInternalError(fmt.Errorf("%w: worker %d evicted job %s", ErrQueueFull, idx, old.ID))
	}

	if s.started.Load() || s.closing.Load() {
		s.workers[idx].Wake()
	}
	return nil
}

// SubmitPtr submits the job j points to. The job is copied; later
// changes to *j do not affect the queued job. A nil j is rejected with
// an error wrapping ErrNilFunc.
func (s *Scheduler[T, M]) SubmitPtr(j *Job[T]) error {
	if j == nil {
		return fmt.Errorf("%w: nil job", ErrNilFunc)
	}
	return s.Submit(*j)
}

// Go submits a plain closure as a job of type typ.
func (s *Scheduler[T, M]) Go(typ JobType, fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	job := s.CreateJob(typ)
	job.Fn = func(T) error {
		fn()
		return nil
	}
	return s.Submit(job)
}

// Shutdown stops accepting jobs, wakes every worker and waits until
// all of them have drained their queues and returned.
//
// If ctx ends first, Shutdown returns ctx.Err() while the workers keep
// draining in the background. Calling Shutdown again waits again.
func (s *Scheduler[T, M]) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.closing.Store(true)
		lg.FromContext(s.ctx).Info("scheduler shutting down",
			lg.Int32("idle_workers", s.idle.Load()),
		)
		for _, w := range s.workers {
			w.Wake()
		}
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is a blocking Shutdown.
func (s *Scheduler[T, M]) Stop() { _ = s.Shutdown(context.Background()) }

// Idle returns the number of workers currently parked.
func (s *Scheduler[T, M]) Idle() int { return int(s.idle.Load()) }

// Workers returns the total number of workers.
func (s *Scheduler[T, M]) Workers() int { return len(s.workers) }

// QueueLen returns the number of jobs waiting in worker i's queue.
func (s *Scheduler[T, M]) QueueLen(i int) int { return s.queues[i].len() }

func (s *Scheduler[T, M]) Metrics() M { return s.metrics }
