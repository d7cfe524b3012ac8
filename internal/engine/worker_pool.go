package engine

import (
	"context"
	"sync"
)

// job is the unit of work dispatched to a worker. idx is the slot its
// result is written to, so completion order never leaks into output.
type job[T any] struct {
	idx     int
	payload T
}

// workerPool is a fixed-size goroutine pool over a bounded input queue.
type workerPool[T, R any] struct {
	queue   chan job[T]
	process func(ctx context.Context, t T) R
	results []R
	wg      sync.WaitGroup
}

// newWorkerPool creates and starts a pool with n goroutines sized for total jobs.
func newWorkerPool[T, R any](ctx context.Context, n, total int, fn func(context.Context, T) R) *workerPool[T, R] {
	if n < 1 {
		n = 1
	}
	p := &workerPool[T, R]{
		queue:   make(chan job[T], n*2),
		process: fn,
		results: make([]R, total),
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

// run drains the queue until it is closed. Cancellation is not observed
// here: every submitted job gets a result, so a run is never partial.
func (p *workerPool[T, R]) run(ctx context.Context) {
	for j := range p.queue {
		p.results[j.idx] = p.process(ctx, j.payload)
	}
}

// Submit enqueues a job, blocking while the queue is full.
func (p *workerPool[T, R]) Submit(idx int, t T) {
	p.queue <- job[T]{idx: idx, payload: t}
}

// Drain closes the queue, waits for all workers and returns the results
// indexed by submission slot.
func (p *workerPool[T, R]) Drain() []R {
	close(p.queue)
	p.wg.Wait()
	return p.results
}

// fanOut runs fn over items on n workers and returns results in item order.
func fanOut[T, R any](ctx context.Context, n int, items []T, fn func(context.Context, T) R) []R {
	p := newWorkerPool[T, R](ctx, n, len(items), fn)
	for i, it := range items {
		p.Submit(i, it)
	}
	return p.Drain()
}
