// Package executors provides ready-made implementations of the executor
// abstraction consumed by package future.
package executors

import (
	"github.com/panjf2000/ants/v2"

	"github.com/saltfishpr/futures/routine"
)

// GoExecutor runs every task on its own goroutine. Panics inside tasks are
// recovered and dropped.
type GoExecutor struct{}

func (GoExecutor) Submit(f func()) {
	routine.GoSafe(f)
}

// PoolExecutor bounds concurrency with a semaphore: at most maxWorkers tasks
// run at once. Submit blocks while the pool is saturated.
type PoolExecutor struct {
	sem chan struct{}
}

func NewPoolExecutor(maxWorkers int) *PoolExecutor {
	return &PoolExecutor{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *PoolExecutor) Submit(f func()) {
	p.sem <- struct{}{}
	go func() {
		defer func() { <-p.sem }()
		routine.RunSafe(f)
	}()
}

// AntsExecutor submits tasks to an ants goroutine pool, reusing workers
// instead of spawning a goroutine per task. A task the pool rejects (pool
// released, or saturated in non-blocking mode) runs inline on the submitting
// goroutine, so continuations never hang.
type AntsExecutor struct {
	pool *ants.Pool
}

func NewAntsExecutor(size int, options ...ants.Option) (*AntsExecutor, error) {
	pool, err := ants.NewPool(size, options...)
	if err != nil {
		return nil, err
	}
	return &AntsExecutor{pool: pool}, nil
}

func (e *AntsExecutor) Submit(f func()) {
	if err := e.pool.Submit(f); err != nil {
		routine.RunSafe(f)
	}
}

// Release stops the underlying pool. Tasks submitted afterwards run inline.
func (e *AntsExecutor) Release() {
	e.pool.Release()
}

// Running returns the number of tasks currently running in the pool.
func (e *AntsExecutor) Running() int {
	return e.pool.Running()
}
