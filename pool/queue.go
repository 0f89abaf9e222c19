package pool

import (
	"errors"
	"sync"
)

var (
	// ErrQueueClosed is returned when a job is sent after the queue was closed.
	ErrQueueClosed = errors.New("pool: queue is closed")

	// ErrNilJob is returned when a nil job is sent.
	ErrNilJob = errors.New("pool: job is nil")
)

// Job is a single unit of deferred work. It runs exactly once on exactly one
// worker; a returned error is logged by the worker and goes no further.
type Job func() error

// JobQueue is an unbounded FIFO of pending jobs shared by every worker of a
// pool. Any number of goroutines may send and receive concurrently.
type JobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []Job
	closed bool
}

// NewJobQueue creates an empty, open queue
func NewJobQueue() *JobQueue {
	q := &JobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends a job to the queue. It never blocks on capacity.
func (q *JobQueue) Send(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.jobs = append(q.jobs, job)
	q.cond.Signal()
	return nil
}

// Receive blocks until a job is available or the queue is closed and drained.
// The boolean is false only in the latter case.
func (q *JobQueue) Receive() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}

	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		// release the backing array once drained
		q.jobs = nil
	}
	return job, true
}

// Close stops the queue from accepting jobs. Jobs already queued are still
// delivered; receivers blocked on an empty queue wake up and observe the
// closure. Calling Close more than once has no further effect.
func (q *JobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of jobs waiting to be received
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Closed reports whether Close has been called
func (q *JobQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
