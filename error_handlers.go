package jobsched

// reportInternalError reports an internal scheduler error.
//
// Internal errors are non-job-related failures such as
// unroutable jobs, evicted jobs or empty dequeues.
// If no handler is registered, the error is only logged.
func (s *Scheduler[T, M]) reportInternalError(e error) {
	if s.opts.OnInternalError != nil {
		s.opts.OnInternalError(e)
	}
}

// reportJobError reports an error returned by a job or
// produced by panic recovery.
//
// Job errors do not stop worker execution.
func (s *Scheduler[T, M]) reportJobError(err error) {
	if s.opts.OnJobError != nil {
		s.opts.OnJobError(err)
	}
}
