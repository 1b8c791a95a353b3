package workpool

import (
	"context"
	"sync"
)

// Group tracks a set of tasks submitted to a Pool so the caller can wait for
// all of them. A Group is cheap; create one per fan-out.
type Group struct {
	pool *Pool
	wg   sync.WaitGroup
	n    int
	mu   sync.Mutex
}

// Group returns a new join handle backed by p.
func (p *Pool) Group() *Group {
	return &Group{pool: p}
}

// Go submits task and tracks it. It blocks while the pool is saturated.
func (g *Group) Go(task Task) error {
	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		task()
	})
	if err != nil {
		g.wg.Done()
		return err
	}
	g.mu.Lock()
	g.n++
	g.mu.Unlock()
	return nil
}

// Len returns how many tasks were submitted through the group.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Wait blocks until every submitted task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// WaitContext waits like Wait but gives up when ctx ends, returning ctx.Err().
// Tasks that are still running are not interrupted.
func (g *Group) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
