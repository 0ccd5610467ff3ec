// Package jobsched provides a job scheduling engine built from a fixed
// set of workers, each owning a bounded FIFO queue, onto which typed
// jobs are routed by capability and balanced by queue length.
//
// Architecture overview
//
// The scheduler is composed of three layers:
//
//  1. Placement (Submit / pickQueue)
//     Every submission scans the workers in index order, skips those
//     whose capability mask does not accept the job type, and picks the
//     compatible queue with the fewest waiting jobs. Ties go to the
//     lowest index. Placement happens once; there is no work stealing.
//
//  2. Execution (workers)
//     Each worker is a goroutine that is the sole consumer of its own
//     queue. It pops one job at a time and runs it. When the queue is
//     empty the worker parks until a submitter, Start or Shutdown wakes
//     it.
//
//  3. Job lifecycle
//     Jobs carry a type, their payload, the execution function, optional
//     context and cleanup logic, and an optional retry policy.
//
// Capabilities
//
// A worker group is a mask plus a worker count. With the default
// MatchSubset rule a job fits a worker when every bit of the job type
// is present in the mask:
//
//	opts := jobsched.Options{
//	    Groups: []jobsched.WorkerGroup{
//	        {Mask: 0b01, Count: 2}, // general work
//	        {Mask: 0b10, Count: 1}, // io work
//	    },
//	    QueueCapacity: 8,
//	}
//
// MatchTier treats masks as ordered tiers instead (type <= mask).
//
// Lifecycle
//
//	s, err := jobsched.NewScheduler[*jobsched.NoopMetrics, int](ctx, &jobsched.NoopMetrics{}, opts)
//	if err != nil {
//	    return err
//	}
//	s.Start()
//	_ = s.Go(0b01, func() { work() })
//	s.Stop()
//
// NewScheduler returns only after every worker has reached its first
// idle point. Jobs submitted before Start are queued but not run.
// Shutdown refuses further submissions, wakes all workers and waits
// for each of them to drain its queue.
//
// Queue design
//
// Queues are fixed-capacity rings guarded by one mutex each, so
// submitters to different workers never contend. With the default
// OverwriteOldest policy a full queue evicts its oldest job; RejectNew
// makes Submit return ErrQueueFull instead.
//
// Error handling
//
// The scheduler distinguishes between two classes of errors:
//
//   - Job errors: returned by job functions or produced by panic recovery
//   - Internal errors: unroutable jobs, evictions and empty dequeues
//
// Both are logged and reported via the handlers in Options. Neither
// stops a worker.
//
// CPU pinning
//
// With Options.PinWorkers each worker is locked to an OS thread and,
// on Linux, restricted to a single CPU core.
package jobsched
