package future

import (
	"github.com/saltfishpr/futures/result"
)

// The chaining functions are free generic functions rather than methods:
// a chained callback introduces a second type parameter, which Go methods
// cannot do. Each variant is keyed by the callback's return shape: a
// (value, error) pair (Then), a plain value (Map), a nested future
// (Compose), or nothing (Finally).
//
// All variants consume the source Future: its shared state moves into the
// continuation machinery and the Future is invalid afterwards. A callback
// registered before the producer delivers fires later, on whichever
// goroutine completes the promise (or on the executor context, if one was
// set); a callback registered after delivery fires inside the chaining call
// itself.

// chain moves f's shared state into a holder built by mk and returns the
// downstream future. The continuation lock is held across registration so a
// concurrent delivery cannot slip between the ready check and arming.
func chain[T, U any](f *Future[T], mk func(src *state[T], down *Promise[U]) callbackHolder) *Future[U] {
	if f == nil || f.state == nil || f.cont == nil {
		return &Future[U]{}
	}
	src, cont := f.state, f.cont
	f.state, f.cont, f.cleanup = nil, nil, nil

	cont.mu.Lock()
	defer cont.mu.Unlock()
	down := NewPromise[U]()
	if cont.exec != nil {
		down.cont.setContext(cont.exec)
	}
	out := down.Future()
	cont.cb = mk(src, down)
	cont.armed.Store(true)
	if src.isReady() {
		cont.fire()
	}
	return out
}

// Then chains a callback mapping the source (value, error) pair into a new
// pair; the downstream Future resolves with the callback's outcome. A nil
// callback returns an invalid Future and leaves the source untouched.
func Then[T, U any](f *Future[T], fn func(val T, err error) (U, error)) *Future[U] {
	if fn == nil {
		return &Future[U]{}
	}
	return chain(f, func(src *state[T], down *Promise[U]) callbackHolder {
		return &resultHolder[T, U]{fn: fn, src: src, down: down}
	})
}

// Map chains a callback producing a plain value; the downstream Future
// always resolves successfully with it.
func Map[T, U any](f *Future[T], fn func(val T, err error) U) *Future[U] {
	if fn == nil {
		return &Future[U]{}
	}
	return chain(f, func(src *state[T], down *Promise[U]) callbackHolder {
		return &valueHolder[T, U]{fn: fn, src: src, down: down}
	})
}

// Compose chains a callback returning a nested future and flattens it: the
// downstream Future resolves with the inner future's result, not with the
// future itself. The inner future is consumed by the flattening.
func Compose[T, U any](f *Future[T], fn func(val T, err error) *Future[U]) *Future[U] {
	if fn == nil {
		return &Future[U]{}
	}
	return chain(f, func(src *state[T], down *Promise[U]) callbackHolder {
		return &futureHolder[T, U]{fn: fn, src: src, down: down}
	})
}

// Finally chains a callback that observes the source result without
// producing a new one. The returned Future reports completion of the
// callback.
func Finally[T any](f *Future[T], fn func(val T, err error)) *Future[result.Void] {
	if fn == nil {
		return &Future[result.Void]{}
	}
	return chain(f, func(src *state[T], down *Promise[result.Void]) callbackHolder {
		return &voidHolder[T]{fn: fn, src: src, down: down}
	})
}
