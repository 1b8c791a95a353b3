// Package workpool provides a fixed-size goroutine pool shared across calls,
// plus a Group join handle used to fan out units of work and wait for all of
// them to finish.
package workpool

import (
	"errors"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned when submitting to a pool after Close.
var ErrPoolClosed = errors.New("workpool: pool closed")

// Task is a unit of work executed by one of the pool's workers. A task that
// panics is recovered and logged; the worker survives.
type Task func()

// Pool runs submitted tasks on a fixed number of workers. Submit blocks while
// every worker is busy, which is the pool's only form of backpressure.
//
// A task must never wait on another task of the same pool: once every worker
// is blocked that way, nothing is left to run the tasks being waited on.
type Pool struct {
	tasks  chan Task
	size   int
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with size workers. Sizes below 1 are treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks: make(chan Task),
		size:  size,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("workpool: task panicked")
		}
	}()
	task()
}

// Submit hands task to the next free worker, blocking until one is available.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close stops accepting tasks and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
