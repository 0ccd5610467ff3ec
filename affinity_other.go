//go:build !linux

package jobsched

// PinToCPU is a no-op outside Linux; workers are still locked to
// their OS thread.
func PinToCPU(cpu int) error { return nil }
