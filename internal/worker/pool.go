// Package worker provides fixed-size task pools with per-submission
// deadlines. Pools keep stalled external calls off the request path: a task
// that misses its deadline keeps running until its context cancels, but its
// result is discarded.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrTimeout means the task did not finish before the submission
	// deadline. The caller proceeds without the result.
	ErrTimeout = errors.New("task deadline exceeded")
	// ErrQueueFull means the pool's queue had no room for the task.
	ErrQueueFull = errors.New("task queue full")
	// ErrStopped means the pool is drained and accepts no more work.
	ErrStopped = errors.New("pool stopped")
)

// Task is one unit of work. The context carries the submission deadline.
type Task func(ctx context.Context) (any, error)

type job struct {
	ctx  context.Context
	task Task
	// result is buffered so a worker finishing after the deadline never
	// blocks; the late value is simply never read.
	result chan outcome
}

type outcome struct {
	value any
	err   error
}

// Pool runs tasks on a fixed number of goroutines with a bounded queue.
type Pool struct {
	name    string
	workers int
	jobs    chan job
	logger  *slog.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPool creates a pool. The queue holds twice the worker count.
func NewPool(name string, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		name:    name,
		workers: workers,
		jobs:    make(chan job, workers*2),
		logger:  logger,
	}
}

// Start launches the workers. Idempotent.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.logger.Debug("Worker pool started", "pool", p.name, "workers", p.workers)
}

// Drain stops accepting work and waits for in-flight tasks to finish.
func (p *Pool) Drain() {
	p.mu.Lock()
	if p.stopped || !p.started {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	p.logger.Debug("Worker pool drained", "pool", p.name)
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.ctx.Err(); err != nil {
			j.result <- outcome{err: err}
			continue
		}
		value, err := j.task(j.ctx)
		j.result <- outcome{value: value, err: err}
	}
}

// Submit enqueues the task and waits up to timeout for its result. On
// timeout the task's context is cancelled best-effort and ErrTimeout is
// returned; a result arriving later is discarded.
func (p *Pool) Submit(ctx context.Context, timeout time.Duration, task Task) (any, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrStopped
	}
	if !p.started {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool %s not started", p.name)
	}
	p.mu.Unlock()

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	j := job{ctx: taskCtx, task: task, result: make(chan outcome, 1)}

	select {
	case p.jobs <- j:
	default:
		cancel()
		return nil, fmt.Errorf("%w: pool %s", ErrQueueFull, p.name)
	}

	select {
	case out := <-j.result:
		return out.value, out.err
	case <-taskCtx.Done():
		p.logger.Warn("Task abandoned at deadline", "pool", p.name, "timeout", timeout)
		return nil, fmt.Errorf("%w: pool %s after %s", ErrTimeout, p.name, timeout)
	}
}
