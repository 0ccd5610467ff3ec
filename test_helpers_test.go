package jobsched_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	js "github.com/Andrej220/go-utils/jobsched"
	lg "github.com/Andrej220/go-utils/zlog"
)

func newTestScheduler[T any](t *testing.T, opts js.Options) (*js.Scheduler[T, *js.AtomicMetrics], *js.AtomicMetrics) {
	t.Helper()

	m := &js.AtomicMetrics{}
	s, err := js.NewScheduler[*js.AtomicMetrics, T](context.Background(), m, opts)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, m
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition not satisfied before timeout")
}

// errSink collects errors from handler callbacks.
type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (e *errSink) add(err error) {
	e.mu.Lock()
	e.errs = append(e.errs, err)
	e.mu.Unlock()
}

func (e *errSink) all() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

// recorder keeps the order in which jobs ran.
type recorder struct {
	mu  sync.Mutex
	ran []int
}

func (r *recorder) fn(n int) error {
	r.mu.Lock()
	r.ran = append(r.ran, n)
	r.mu.Unlock()
	return nil
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ran...)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// captureLogger records "LEVEL: msg" lines for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (c *captureLogger) log(level, msg string) {
	c.mu.Lock()
	c.entries = append(c.entries, level+": "+msg)
	c.mu.Unlock()
}

func (c *captureLogger) Info(msg string, _ ...lg.Field)  { c.log("INFO", msg) }
func (c *captureLogger) Warn(msg string, _ ...lg.Field)  { c.log("WARN", msg) }
func (c *captureLogger) Error(msg string, _ ...lg.Field) { c.log("ERROR", msg) }
func (c *captureLogger) Debug(msg string, _ ...lg.Field) { c.log("DEBUG", msg) }
func (c *captureLogger) With(_ ...lg.Field) lg.ZLogger   { return c }
func (c *captureLogger) Sync() error                     { return nil }

func (c *captureLogger) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}

func (c *captureLogger) has(level, msg string) bool {
	for _, e := range c.lines() {
		if e == level+": "+msg {
			return true
		}
	}
	return false
}
