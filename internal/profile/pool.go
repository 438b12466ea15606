package profile

import (
	"context"
	"log"
	"sync"

	"datalens/domain/core"

	"golang.org/x/sync/errgroup"
)

// Pool is the shared batch executor for the heavier pipeline steps. It is
// created once, injected into every pipeline, and lazily sized on first
// use. If a batch run fails, the pool marks itself broken and every later
// invocation falls back to the sequential path until the process restarts.
type Pool struct {
	workers int

	mu     sync.Mutex
	broken bool
	closed bool
}

// NewPool returns a batch pool with the given worker count. A count below
// one disables pooled execution entirely.
func NewPool(workers int) *Pool {
	return &Pool{workers: workers}
}

// Available reports whether the pool can accept work.
func (p *Pool) Available() bool {
	if p == nil || p.workers < 1 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.broken && !p.closed
}

// Run executes the batch tasks with bounded concurrency. Tasks write their
// results into caller-owned slots keyed by batch index, so completion order
// never reorders output. On any task error the pool is torn down and the
// error returned; callers are expected to retry sequentially.
func (p *Pool) Run(ctx context.Context, tasks []func() error) error {
	if !p.Available() {
		return core.ErrPoolUnavailable
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, task := range tasks {
		g.Go(task)
	}

	if err := g.Wait(); err != nil {
		p.teardown(err)
		return err
	}
	return nil
}

// Close disposes the pool; later invocations use the sequential path.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Pool) teardown(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.broken {
		log.Printf("[Pool] batch execution failed, disabling pooled path: %v", err)
		p.broken = true
	}
}
