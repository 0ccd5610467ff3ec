package jobsched

import (
	"fmt"
	"strings"
)

// WorkerStat is a point-in-time view of one worker and its queue.
type WorkerStat struct {
	Index    int
	Mask     JobType
	State    WorkerState
	QueueLen int
	QueueCap int
}

// Stats is a point-in-time view of the scheduler. Fields are read
// without stopping the workers, so they may be mutually inconsistent
// under load.
type Stats struct {
	Workers []WorkerStat
	Idle    int
	Started bool
	Closing bool
}

// QueueDepths returns the queue length of every worker in index order.
func (st Stats) QueueDepths() []int {
	out := make([]int, len(st.Workers))
	for i, w := range st.Workers {
		out[i] = w.QueueLen
	}
	return out
}

func (st Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workers=%d idle=%d started=%t closing=%t", len(st.Workers), st.Idle, st.Started, st.Closing)
	for _, w := range st.Workers {
		fmt.Fprintf(&b, "\n  [%d] mask=%s state=%s queue=%d/%d", w.Index, w.Mask, w.State, w.QueueLen, w.QueueCap)
	}
	return b.String()
}

func (s *Scheduler[T, M]) Stats() Stats {
	st := Stats{
		Workers: make([]WorkerStat, len(s.workers)),
		Idle:    s.Idle(),
		Started: s.started.Load(),
		Closing: s.closing.Load(),
	}
	for i, w := range s.workers {
		st.Workers[i] = WorkerStat{
			Index:    i,
			Mask:     w.mask,
			State:    w.State(),
			QueueLen: s.queues[i].len(),
			QueueCap: s.queues[i].ring.Cap(),
		}
	}
	return st
}
