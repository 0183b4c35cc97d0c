package future

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/saltfishpr/futures/result"
)

// Async runs f on the default executor and returns the Future of its
// outcome. Panics inside f resolve the Future with an ErrPanic error.
func Async[T any](f func() (T, error)) *Future[T] {
	return Submit(executor, f)
}

// CtxAsync is Async with a context threaded through to f.
func CtxAsync[T any](ctx context.Context, f func(ctx context.Context) (T, error)) *Future[T] {
	return CtxSubmit(ctx, executor, f)
}

// Submit runs f on the given executor and returns the Future of its outcome.
func Submit[T any](e Executor, f func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	out := p.Future()
	e.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.SetError(recoveredError(2, r))
			}
		}()
		p.Set(f())
	})
	return out
}

// CtxSubmit is Submit with a context threaded through to f.
func CtxSubmit[T any](ctx context.Context, e Executor, f func(ctx context.Context) (T, error)) *Future[T] {
	p := NewPromise[T]()
	out := p.Future()
	e.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.SetError(recoveredError(2, r))
			}
		}()
		p.Set(f(ctx))
	})
	return out
}

// Done returns an already-resolved Future holding v.
func Done[T any](v T) *Future[T] {
	return Done2(v, nil)
}

// Done2 returns an already-resolved Future holding the (value, error) pair.
func Done2[T any](v T, err error) *Future[T] {
	p := NewPromise[T]()
	out := p.Future()
	p.Set(v, err)
	return out
}

// Lazy returns a Future whose computation runs synchronously inside the
// first consuming read, not before. Waiters see the Future as ready
// immediately; the work happens on the consumer's goroutine.
func Lazy[T any](f func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	out := p.Future()
	p.SetFunc(func() result.Result[T] {
		return result.Of(f())
	})
	return out
}

// Await blocks until f resolves and returns its (value, error) pair.
func Await[T any](f *Future[T]) (T, error) {
	return f.Get()
}

// AllOf consumes the given futures and resolves with all their values in
// input order, or with the first error observed. An invalid source counts as
// an ErrNoState failure. The sources are consumed by AllOf and must not be
// read again.
func AllOf[T any](fs ...*Future[T]) *Future[[]T] {
	if len(fs) == 0 {
		return Done[[]T](nil)
	}

	p := NewPromise[[]T]()
	out := p.Future()
	var failed atomic.Bool
	var remaining atomic.Int32
	remaining.Store(int32(len(fs)))
	results := make([]T, len(fs))
	for i, f := range fs {
		i := i
		if !f.Valid() {
			// an invalid source registers no callback; resolve here so the
			// aggregate cannot wait on it forever
			if failed.CompareAndSwap(false, true) {
				p.SetError(ErrNoState)
			}
			continue
		}
		Finally(f, func(val T, err error) {
			if err != nil {
				// only the first failure resolves the promise; a failed
				// source never decrements remaining, so the success path
				// below cannot fire as well
				if failed.CompareAndSwap(false, true) {
					p.SetError(err)
				}
				return
			}
			results[i] = val
			if remaining.Add(-1) == 0 {
				p.SetValue(results)
			}
		})
	}
	return out
}

// Timeout resolves with f's result, or with ErrTimeout if d elapses first.
// An invalid source resolves to ErrNoState immediately. On timeout the
// source future is abandoned and its eventual result is discarded.
func Timeout[T any](f *Future[T], d time.Duration) *Future[T] {
	if !f.Valid() {
		var zero T
		return Done2(zero, ErrNoState)
	}
	p := NewPromise[T]()
	out := p.Future()
	executor.Submit(func() {
		if f.WaitFor(d) {
			p.complete(f.Result())
			return
		}
		p.SetError(ErrTimeout)
	})
	return out
}

// Until is Timeout with an absolute deadline.
func Until[T any](f *Future[T], deadline time.Time) *Future[T] {
	return Timeout(f, time.Until(deadline))
}

// WithContext resolves with f's result, or with ctx.Err() if the context
// finishes first. On cancellation the source future is abandoned.
func WithContext[T any](ctx context.Context, f *Future[T]) *Future[T] {
	p := NewPromise[T]()
	out := p.Future()
	executor.Submit(func() {
		select {
		case <-f.Done():
			p.complete(f.Result())
		case <-ctx.Done():
			p.SetError(ctx.Err())
		}
	})
	return out
}
