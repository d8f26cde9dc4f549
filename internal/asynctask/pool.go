package asynctask

import (
	"context"
	"sync"
)

// Pool manages goroutines for CPU-bound background work.
type Pool struct {
	jobQueue chan func()
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPool creates a worker pool with the given number of workers and
// job queue capacity.
func NewPool(workers int, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		jobQueue: make(chan func(), queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for range workers {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit queues a job for execution without blocking.
// Returns false if the queue is full.
func (p *Pool) Submit(job func()) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitBlocking queues a job, waiting for queue space if needed.
func (p *Pool) SubmitBlocking(job func()) {
	select {
	case p.jobQueue <- job:
	case <-p.ctx.Done():
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			job()
		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers and waits for them to exit. Queued jobs that
// have not started are dropped.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// QueueLen returns the current number of jobs waiting in the queue.
func (p *Pool) QueueLen() int {
	return len(p.jobQueue)
}

// Done exposes the pool's cancellation signal so producers blocked on
// downstream queues can bail out during shutdown.
func (p *Pool) Done() <-chan struct{} {
	return p.ctx.Done()
}
