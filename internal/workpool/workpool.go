// Package workpool implements the fixed-size goroutine pool that offloads
// blocking filesystem, subprocess, SQL, and hashing work off the session
// event loop per section 5's concurrency model.
package workpool

import (
	"context"
	"sync"
)

// Pool runs submitted jobs on a fixed number of long-lived workers fed by
// a buffered job channel.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// New starts a Pool with workers goroutines draining a job channel of the
// given buffer size. workers and queueSize are both clamped to at least 1.
func New(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		jobs:   make(chan func(), queueSize),
		closed: make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Submit runs fn on a pool worker and returns its error over the returned
// channel once it completes. If ctx is canceled before a worker picks up
// the job, the job still runs to completion per section 5's cancellation
// semantics (in-flight jobs run to completion, their results discarded)
// but Submit returns ctx.Err() immediately without waiting.
func (p *Pool) Submit(ctx context.Context, fn func() error) <-chan error {
	result := make(chan error, 1)
	job := func() {
		result <- fn()
	}

	select {
	case p.jobs <- job:
	case <-p.closed:
		result <- context.Canceled
		return result
	}

	out := make(chan error, 1)
	go func() {
		select {
		case err := <-result:
			out <- err
		case <-ctx.Done():
			out <- ctx.Err()
		}
	}()
	return out
}

// Run is a convenience wrapper over Submit that blocks for the result.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	return <-p.Submit(ctx, fn)
}

// Close stops accepting new jobs and waits for queued jobs to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}
