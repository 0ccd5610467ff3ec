package jobsched

import (
	"context"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
)

// jobContext returns the context a job logs and waits under.
func (s *Scheduler[T, M]) jobContext(j *Job[T]) context.Context {
	if ctx := j.ctx(); ctx != nil {
		return ctx
	}
	return s.ctx
}

// execute runs one dequeued job on worker w. Panics are recovered so a
// faulty job never takes its worker down; CleanupFunc always runs.
func (s *Scheduler[T, M]) execute(w *worker[T, M], job Job[T]) {
	ctx := s.jobContext(&job)
	defer func() {
		if r := recover(); r != nil {
			lg.FromContext(ctx).Error("job panicked",
				lg.String("job", job.ID.String()),
				lg.Int("worker", w.index),
				lg.Any("panic", r),
			)
			s.metrics.IncFailed()
			s.reportJobError(&JobPanicError{JobID: job.ID, Value: r})
		}
		job.cleanup()
		s.metrics.IncExecuted()
	}()
	s.processJob(ctx, w, job)
}

func (s *Scheduler[T, M]) processJob(ctx context.Context, w *worker[T, M], job Job[T]) {
	pol := s.opts.Retry.merge(job.Retry)

	var next func() time.Duration
	for attempt := 1; ; attempt++ {
		err := job.Fn(job.Payload)
		if err == nil {
			return
		}

		logger := lg.FromContext(ctx).With(lg.String("job", job.ID.String()), lg.Int("worker", w.index))
		if attempt >= pol.Attempts {
			logger.Error("job failed", lg.Int("attempt", attempt), lg.Any("error", err))
			s.metrics.IncFailed()
			s.reportJobError(&JobError{JobID: job.ID, Attempts: attempt, Err: err})
			return
		}

		if next == nil {
			bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())
			next = bo.Next
		}
		delay := next()
		logger.Warn("job attempt failed; backing off",
			lg.Int("attempt", attempt),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C // drain if timer is fired
			}
			logger.Info("job canceled", lg.Any("reason", ctx.Err()))
			s.metrics.IncFailed()
			s.reportJobError(&JobError{JobID: job.ID, Attempts: attempt, Err: ctx.Err()})
			return
		}
	}
}
