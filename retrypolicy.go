package jobsched

import (
	"time"
)

const (
	defaultAttempts     = 1
	defaultInitialRetry = 200 * time.Millisecond
	defaultMaxRetry     = 5 * time.Second
)

// RetryPolicy describes how many times and how often a job should be retried.
// Zero values are treated as "use scheduler defaults".
type RetryPolicy struct {
	// Attempts is the maximum number of tries for a job.
	Attempts int

	// Initial is the first backoff duration.
	Initial time.Duration

	// Max is the cap for backoff duration.
	Max time.Duration
}

// GetDefaultRP returns a pointer to the default retry policy.
// A single attempt: failed jobs are reported, not retried.
func GetDefaultRP() *RetryPolicy {
	rp := RetryPolicy{
		Attempts: defaultAttempts,
		Initial:  defaultInitialRetry,
		Max:      defaultMaxRetry,
	}
	return &rp
}

func (rp *RetryPolicy) fillDefaults() {
	if rp.Attempts <= 0 {
		rp.Attempts = defaultAttempts
	}
	if rp.Initial <= 0 {
		rp.Initial = defaultInitialRetry
	}
	if rp.Max <= 0 {
		rp.Max = defaultMaxRetry
	}
}

// merge overrides non-zero per-job values on top of rp.
func (rp RetryPolicy) merge(override *RetryPolicy) RetryPolicy {
	if override == nil {
		return rp
	}
	if override.Attempts > 0 {
		rp.Attempts = override.Attempts
	}
	if override.Initial > 0 {
		rp.Initial = override.Initial
	}
	if override.Max > 0 {
		rp.Max = override.Max
	}
	return rp
}
