// Package pool implements a fixed-size worker pool fed by an unbounded FIFO
// job queue, with a shutdown that drains queued work and waits for every
// worker to finish the job it is running.
package pool

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// ErrInvalidPoolSize is returned by New for a size below one.
var ErrInvalidPoolSize = errors.New("pool: size must be greater than zero")

// Stats is a point-in-time snapshot of pool activity
type Stats struct {
	Workers   int
	Queued    int
	Active    int
	Completed uint64
	Failed    uint64
}

// WorkerPool owns a fixed set of workers and the sending side of their queue
type WorkerPool struct {
	workers      []*Worker
	queue        *JobQueue
	logger       *slog.Logger
	shutdownOnce sync.Once
}

// Option configures a WorkerPool
type Option func(*WorkerPool)

// WithLogger sets the logger used by the pool and its workers
func WithLogger(logger *slog.Logger) Option {
	return func(wp *WorkerPool) {
		if logger != nil {
			wp.logger = logger
		}
	}
}

// New creates a pool of size workers, each already waiting for jobs
func New(size int, opts ...Option) (*WorkerPool, error) {
	if size <= 0 {
		return nil, ErrInvalidPoolSize
	}

	wp := &WorkerPool{
		queue:  NewJobQueue(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(wp)
	}

	wp.workers = make([]*Worker, 0, size)
	for i := 0; i < size; i++ {
		wp.workers = append(wp.workers, newWorker(i, wp.queue, wp.logger))
	}
	wp.logger.Debug("worker pool started", "workers", size)

	return wp, nil
}

// Submit hands a job to the next available worker. It returns ErrQueueClosed
// once Shutdown has started.
func (wp *WorkerPool) Submit(job Job) error {
	return wp.queue.Send(job)
}

// Shutdown closes the queue and waits for every worker to exit. Queued jobs
// still run and running jobs are never interrupted. Safe to call more than
// once; every call returns only after all workers have exited.
func (wp *WorkerPool) Shutdown() {
	wp.shutdownOnce.Do(func() {
		wp.logger.Debug("worker pool shutting down", "queued", wp.queue.Len())
		wp.queue.Close()
		for _, w := range wp.workers {
			w.Join()
		}
		wp.logger.Debug("worker pool stopped")
	})
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return len(wp.workers)
}

// Stats returns a snapshot of queue depth and per-worker counters
func (wp *WorkerPool) Stats() Stats {
	stats := Stats{
		Workers: len(wp.workers),
		Queued:  wp.queue.Len(),
	}
	for _, w := range wp.workers {
		if w.State() == StateRunning {
			stats.Active++
		}
		stats.Completed += w.completed.Load()
		stats.Failed += w.failed.Load()
	}
	return stats
}
