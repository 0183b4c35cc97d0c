package future

import "github.com/saltfishpr/futures/future/executors"

// Executor abstracts where deferred work runs: tasks submitted by Async and
// friends, and continuations whose future carries an execution context
// (Future.SetExecutor).
//
// The default executor runs every task on a fresh goroutine
// (executors.GoExecutor). Override it with SetExecutor to limit concurrency
// or reuse workers, using executors.PoolExecutor, executors.AntsExecutor, or
// any wrapper over a goroutine pool:
//
//	pool, _ := ants.NewPool(100)
//	future.SetExecutor(future.ExecutorFunc(func(f func()) {
//	    _ = pool.Submit(f)
//	}))
//
// A pooled executor can queue tasks behind blocking ones; override the
// default only with knowledge of the workload.
type Executor interface {
	Submit(func())
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(func())

func (e ExecutorFunc) Submit(f func()) {
	e(f)
}

var executor Executor = executors.GoExecutor{}

// SetExecutor replaces the process-wide default executor.
// Passing nil panics.
func SetExecutor(e Executor) {
	if e == nil {
		panic("executor is nil")
	}
	executor = e
}
