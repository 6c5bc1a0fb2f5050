package mining

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool. Errors are the job's own
// business; asset tasks log failures and leave their card field blank.
type Job func(ctx context.Context) error

// WorkerPool runs jobs on a fixed number of goroutines. Two instances back
// the assembly pipeline: one for media extraction, one for uploads.
type WorkerPool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	closeMu sync.Mutex
	closed  bool
}

// NewWorkerPool creates a pool with the given worker count and queue depth.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		workers: workers,
	}
}

// Start launches the worker goroutines. They run until Close drains the
// queue: cancellation gates scheduling at the submitter, never the workers,
// so every already-enqueued job still runs to completion. Jobs receive a
// context carrying ctx's values but not its cancellation, keeping in-flight
// external processes alive across a cancel.
func (p *WorkerPool) Start(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				_ = job(jobCtx)
			}
		}()
	}
}

// Submit enqueues a job, blocking when the queue is full. Returns
// ErrPoolClosed after Close. The lock is held across the send so a job is
// never written to a closed channel.
func (p *WorkerPool) Submit(job Job) error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.jobs <- job
	return nil
}

// Close stops accepting jobs and waits for in-flight and queued work to
// drain. This is the batch boundary the assembly step blocks on.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
}

// ErrPoolClosed is returned when Submit is called after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is a typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
