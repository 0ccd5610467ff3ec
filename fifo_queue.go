// fifo_queue.go
package jobsched

import (
	"sync"
	"sync/atomic"
)

const (
	// DefaultQueueCapacity is the per-worker queue size used when
	// Options.QueueCapacity is not set.
	DefaultQueueCapacity = 1024
)

// ringQueue implements a fixed-capacity first-in–first-out job queue.
//
// Jobs are processed strictly in the order they are submitted.
// When the ring is full, Push overwrites the oldest job and hands it
// back to the caller. ringQueue is not safe for concurrent use.
type ringQueue[T any] struct {
	buf        []Job[T] // circular buffer
	head, tail int      // read/write indices
	size       int      // number of jobs currently buffered
	capacity   int
}

// newRingQueue creates a FIFO queue with the given capacity.
func newRingQueue[T any](capacity int) *ringQueue[T] {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ringQueue[T]{
		buf:      make([]Job[T], capacity),
		capacity: capacity,
	}
}

// Len returns the number of jobs currently waiting in the queue.
func (q *ringQueue[T]) Len() int { return q.size }

// Cap returns the fixed capacity of the queue.
func (q *ringQueue[T]) Cap() int { return q.capacity }

// Full reports whether the next Push would evict a job.
func (q *ringQueue[T]) Full() bool { return q.size == q.capacity }

// Push inserts a job at the tail of the queue.
//
// If the queue is full, the oldest job is evicted to make room and
// returned with evicted set to true.
func (q *ringQueue[T]) Push(j Job[T]) (old Job[T], evicted bool) {
	if q.size == q.capacity {
		old = q.buf[q.head]
		q.head++
		if q.head == q.capacity {
			q.head = 0
		}
		q.size--
		evicted = true
	}
	q.buf[q.tail] = j
	q.tail++
	if q.tail == q.capacity {
		q.tail = 0
	}
	q.size++
	return old, evicted
}

// Pop removes and returns the oldest job.
//
// If the queue is empty, returns zero-value Job[T] and false.
func (q *ringQueue[T]) Pop() (Job[T], bool) {
	if q.size == 0 {
		return Job[T]{}, false
	}
	j := q.buf[q.head]
	q.buf[q.head] = Job[T]{} // release payload for GC
	q.head++
	if q.head == q.capacity {
		q.head = 0
	}
	q.size--
	return j, true
}

// workerQueue pairs a ring with the mutex guarding it.
//
// depth mirrors ring.Len() so the placement scan can read occupancy
// without taking every queue lock.
type workerQueue[T any] struct {
	mu    sync.Mutex
	ring  *ringQueue[T]
	depth atomic.Int64
	_     cachePad
}

func newWorkerQueue[T any](capacity int) *workerQueue[T] {
	return &workerQueue[T]{ring: newRingQueue[T](capacity)}
}

// push enqueues under the queue lock. With reject set, a full queue
// refuses the job instead of evicting the oldest one.
func (wq *workerQueue[T]) push(j Job[T], reject bool) (old Job[T], evicted bool, err error) {
	wq.mu.Lock()
	defer wq.mu.Unlock()
	if reject && wq.ring.Full() {
		return Job[T]{}, false, ErrQueueFull
	}
	old, evicted = wq.ring.Push(j)
	wq.depth.Store(int64(wq.ring.Len()))
	return old, evicted, nil
}

func (wq *workerQueue[T]) pop() (Job[T], bool) {
	wq.mu.Lock()
	defer wq.mu.Unlock()
	j, ok := wq.ring.Pop()
	if ok {
		wq.depth.Store(int64(wq.ring.Len()))
	}
	return j, ok
}

func (wq *workerQueue[T]) len() int { return int(wq.depth.Load()) }
