// Package future implements the Promise-Future pattern with a thread-safe
// shared state and attachable continuations.
//
// A Promise is the push end: the goroutine that produces a value (or error)
// stores it in the shared state exactly once. The Future is the pull end:
// consumers block on the state (Wait, WaitFor, Get), or chain continuations
// (Then, Map, Compose, Finally) that run once the state becomes ready,
// either inline on the completing goroutine or on a pluggable Executor.
//
// The store performed by Promise.SetValue synchronizes-with (as defined in
// Go's memory model) the return of any read waiting on the shared state, so
// a woken waiter always observes the committed result.
//
// Anomalies never crash consumers: a duplicate set, a second future
// retrieval or a promise discarded before delivery all degrade into one of
// the diagnostic errors ErrNoState, ErrBrokenPromise,
// ErrPromiseAlreadySatisfied and ErrFutureAlreadyRetrieved, observed through
// the future's result. The only panics are contract violations: calling
// through a Promise or Future that has no shared state at all.
package future

import (
	"time"

	"github.com/saltfishpr/futures/result"
)

// Future is the consumer handle on a shared state. It reads or waits on the
// state and chains continuations.
//
// A Future is single-consumer: Result/Get consume the state, and the
// chaining functions move it into the continuation machinery, leaving the
// Future invalid. A Future must not be copied after first use.
type Future[T any] struct {
	state   *state[T]
	cont    *continuation
	cleanup func()
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Valid reports whether the Future is associated with a shared state that
// still has a deliverable result. It turns false once the result is
// consumed, the Future is released, or a chaining call moved the state away.
func (f *Future[T]) Valid() bool {
	return f != nil && f.state != nil && f.state.isValid()
}

// Ready reports whether the shared state holds a committed result.
func (f *Future[T]) Ready() bool {
	return f != nil && f.state != nil && f.state.isReady()
}

// Result blocks until the producer delivers, then consumes and returns the
// result. An invalid Future yields ErrNoState immediately. At most one
// Result call per shared state returns the committed outcome.
func (f *Future[T]) Result() result.Result[T] {
	if !f.Valid() {
		return result.FromError[T](ErrNoState)
	}
	return f.state.get()
}

// Get is Result unwrapped into Go's conventional (value, error) pair.
func (f *Future[T]) Get() (T, error) {
	return f.Result().Get()
}

// Wait blocks until the shared state is ready. Non-consuming; returns
// immediately on an invalid Future.
func (f *Future[T]) Wait() {
	if f == nil || f.state == nil {
		return
	}
	f.state.wait()
}

// WaitFor blocks until the shared state is ready or d elapses, and reports
// whether it became ready. An invalid Future reports false.
func (f *Future[T]) WaitFor(d time.Duration) bool {
	if f == nil || f.state == nil {
		return false
	}
	return f.state.waitFor(d)
}

// WaitUntil blocks until the shared state is ready or the deadline passes.
func (f *Future[T]) WaitUntil(deadline time.Time) bool {
	if f == nil || f.state == nil {
		return false
	}
	return f.state.waitUntil(deadline)
}

// Done returns a channel closed when the shared state becomes ready, for use
// in select statements. The channel of an invalid Future is already closed.
func (f *Future[T]) Done() <-chan struct{} {
	if f == nil || f.state == nil {
		return closedChan
	}
	return f.state.done
}

// SetExecutor installs the executor that continuations chained from this
// Future are submitted to, instead of running inline on the completing
// goroutine. It must be called before the chaining call to take effect.
// The first non-nil executor wins; later calls report false.
func (f *Future[T]) SetExecutor(e Executor) bool {
	if f == nil || f.cont == nil {
		return false
	}
	return f.cont.setContext(e)
}

// Release drops the Future's handle on the shared state. If a cleanup
// callable was attached and the producer has not delivered yet, the cleanup
// runs, signalling abandonment to the producer side. The Future is invalid
// afterwards.
func (f *Future[T]) Release() {
	if f == nil {
		return
	}
	if f.state != nil && f.cleanup != nil && f.state.isValid() && !f.state.isReady() {
		f.cleanup()
	}
	f.state, f.cont, f.cleanup = nil, nil, nil
}
