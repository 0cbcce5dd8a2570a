package crawler

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

type job func(ctx context.Context)

// WorkerPool runs jobs on a fixed number of goroutines from an unbounded
// FIFO. Submit never blocks, so workers can queue follow-up jobs freely.
// Workers drain the queue even after cancellation; jobs are expected to
// check ctx themselves.
type WorkerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	ready  *sync.Cond
	queue  []job
	closed bool
}

// NewWorkerPool starts concurrency workers. queueHint preallocates the queue.
func NewWorkerPool(parent context.Context, concurrency, queueHint int) (*WorkerPool, error) {
	if concurrency <= 0 || queueHint <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &WorkerPool{
		ctx:    ctx,
		cancel: cancel,
		queue:  make([]job, 0, queueHint),
	}
	pool.ready = sync.NewCond(&pool.mu)
	for i := 0; i < concurrency; i++ {
		pool.wg.Add(1)
		go pool.work()
	}
	return pool, nil
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		fn, ok := p.next()
		if !ok {
			return
		}
		fn(p.ctx)
	}
}

// next blocks until a job is queued, or returns false once the pool is
// closed and empty.
func (p *WorkerPool) next() (job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.ready.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	fn := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return fn, true
}

// Submit queues fn.
func (p *WorkerPool) Submit(fn job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, fn)
	p.ready.Signal()
	return nil
}

// Pending returns the number of queued jobs not yet picked up.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting jobs, cancels the pool context, and waits for every
// queued job to finish.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
