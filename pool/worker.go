package pool

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// State is the lifecycle state of a worker
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Worker is one long-lived goroutine that pulls jobs from a shared queue and
// runs them one at a time until the queue is closed and drained.
type Worker struct {
	id     int
	queue  *JobQueue
	logger *slog.Logger
	state  atomic.Int32
	done   chan struct{}

	completed atomic.Uint64
	failed    atomic.Uint64
}

// newWorker creates a worker and starts its goroutine
func newWorker(id int, queue *JobQueue, logger *slog.Logger) *Worker {
	w := &Worker{
		id:     id,
		queue:  queue,
		logger: logger.With("worker", id),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// run is the worker loop
func (w *Worker) run() {
	defer close(w.done)

	for {
		job, ok := w.queue.Receive()
		if !ok {
			w.state.Store(int32(StateTerminating))
			w.logger.Debug("queue closed, worker exiting")
			return
		}

		w.state.Store(int32(StateRunning))
		if err := w.execute(job); err != nil {
			w.failed.Add(1)
			w.logger.Warn("job failed", "error", err)
		} else {
			w.completed.Add(1)
		}
		w.state.Store(int32(StateIdle))
	}
}

// execute runs a job, turning a panic into an error so the loop survives it
func (w *Worker) execute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job()
}

// Join blocks until the worker goroutine has exited
func (w *Worker) Join() {
	<-w.done
}

// ID returns the worker index within its pool
func (w *Worker) ID() int {
	return w.id
}

// State returns the current lifecycle state
func (w *Worker) State() State {
	return State(w.state.Load())
}
