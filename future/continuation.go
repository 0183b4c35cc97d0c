package future

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/saltfishpr/futures/result"
	"github.com/saltfishpr/futures/routine"
)

// callbackHolder is the type-erased entry of a continuation's callback slot.
// Concrete holders pair a user callback with the source state it consumes
// and the downstream promise it completes.
type callbackHolder interface {
	invoke()
}

// continuation bridges a chained callback to the moment the shared state
// becomes ready. It holds at most one pending callback; the armed flag
// guards double execution, and an optional executor defers execution off the
// completing goroutine.
type continuation struct {
	mu    sync.Mutex
	cb    callbackHolder
	armed atomic.Bool
	exec  Executor
}

// setContext installs the executor that deferred callbacks are submitted to.
// The first non-nil setter wins; later calls report false.
func (c *continuation) setContext(e Executor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e == nil || c.exec != nil {
		return false
	}
	c.exec = e
	return true
}

// fire runs the registered callback at most once. Callers must hold mu. The
// armed flag is cleared before the callback runs, so a concurrent fire after
// the lock is released stays a no-op. With an executor set the callback is
// moved into a submitted task, decoupling the completing goroutine from the
// callback's execution; otherwise it runs inline.
func (c *continuation) fire() {
	if c.cb == nil || !c.armed.CompareAndSwap(true, false) {
		return
	}
	cb := c.cb
	c.cb = nil
	if c.exec != nil {
		c.exec.Submit(cb.invoke)
		return
	}
	cb.invoke()
}

// recoveredError converts a recovered panic value into an error carrying the
// capture-site stack, chained under ErrPanic.
func recoveredError(skip int, v interface{}) error {
	return fmt.Errorf("%w, cause=%v", ErrPanic, routine.NewRecovered(skip+1, v).AsError())
}

// relayPanic resolves down with an ErrPanic error when the surrounding
// callback invocation panicked. Must be used directly in a defer.
func relayPanic[U any](down *Promise[U]) {
	if r := recover(); r != nil {
		down.complete(result.FromError[U](recoveredError(2, r)))
	}
}

// resultHolder backs Then: the callback maps the source (value, error) pair
// into the downstream pair.
type resultHolder[T, U any] struct {
	fn   func(val T, err error) (U, error)
	src  *state[T]
	down *Promise[U]
}

func (h *resultHolder[T, U]) invoke() {
	defer relayPanic(h.down)
	v, err := h.src.get().Get()
	h.down.complete(result.Of(h.fn(v, err)))
}

// valueHolder backs Map: the callback produces a plain value, which always
// resolves the downstream future successfully.
type valueHolder[T, U any] struct {
	fn   func(val T, err error) U
	src  *state[T]
	down *Promise[U]
}

func (h *valueHolder[T, U]) invoke() {
	defer relayPanic(h.down)
	v, err := h.src.get().Get()
	h.down.complete(result.FromValue(h.fn(v, err)))
}

// voidHolder backs Finally: the callback observes the source result and the
// downstream future reports completion only.
type voidHolder[T any] struct {
	fn   func(val T, err error)
	src  *state[T]
	down *Promise[result.Void]
}

func (h *voidHolder[T]) invoke() {
	defer relayPanic(h.down)
	v, err := h.src.get().Get()
	h.fn(v, err)
	h.down.complete(result.FromValue(result.Void{}))
}

// futureHolder backs Compose: the callback returns a nested future, which is
// flattened into the downstream one. An already-ready inner future is copied
// synchronously; a pending one gets a relay continuation that forwards its
// result on completion.
type futureHolder[T, U any] struct {
	fn   func(val T, err error) *Future[U]
	src  *state[T]
	down *Promise[U]
}

func (h *futureHolder[T, U]) invoke() {
	defer relayPanic(h.down)
	v, err := h.src.get().Get()
	inner := h.fn(v, err)
	if inner == nil || inner.state == nil {
		h.down.complete(result.FromError[U](ErrNoState))
		return
	}
	if inner.state.isReady() {
		h.down.complete(inner.state.get())
		return
	}
	down := h.down
	Finally(inner, func(v U, err error) {
		down.complete(result.Of(v, err))
	})
}
