package future

import (
	"sync"
	"time"

	"github.com/saltfishpr/futures/result"
)

// state is the single thread-safe cell shared by a Promise, the Future
// derived from it, and any pending continuation. It holds either no data, a
// deferred computation, or a ready Result.
//
// One mutex guards every field. The done channel is closed exactly once, at
// the moment ready flips to true; waiters block on the channel instead of a
// condition variable so that timed waits compose with select.
type state[T any] struct {
	mu   sync.Mutex
	done chan struct{}

	data  result.Result[T]
	fn    func() result.Result[T]
	ready bool
	valid bool
}

func newState[T any]() *state[T] {
	return &state[T]{
		done: make(chan struct{}),
		data: result.FromError[T](ErrNoState),
	}
}

// markReadyLocked flips ready and wakes all waiters. ready never goes back
// to false, so the channel close happens at most once.
func (s *state[T]) markReadyLocked() {
	if !s.ready {
		s.ready = true
		close(s.done)
	}
}

func (s *state[T]) commitLocked(r result.Result[T]) {
	s.data = r
	s.fn = nil
	s.markReadyLocked()
}

// setErrorLocked converts a late or duplicate write into a diagnostic error
// instead of silently dropping it. If the state is already ready it forcibly
// overwrites the slot and reports true, telling the caller to skip its own
// write. The valid flag distinguishes "never had a consumer" (ErrNoState)
// from "value already set" (ErrPromiseAlreadySatisfied); keep the two apart.
func (s *state[T]) setErrorLocked() bool {
	if !s.ready {
		return false
	}
	if !s.valid {
		s.data = result.FromError[T](ErrNoState)
	} else {
		s.data = result.FromError[T](ErrPromiseAlreadySatisfied)
	}
	s.fn = nil
	return true
}

// setResult stores r and marks the state ready, waking all waiters.
// If the state is already ready the slot degrades to a diagnostic error.
func (s *state[T]) setResult(r result.Result[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErrorLocked() {
		return
	}
	s.commitLocked(r)
}

// setFunc stores a deferred computation in place of a concrete value. The
// state becomes ready immediately; fn runs lazily inside the consuming get.
func (s *state[T]) setFunc(fn func() result.Result[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErrorLocked() {
		return
	}
	s.fn = fn
	s.markReadyLocked()
}

// get blocks until the state is ready and consumes it: the deferred
// computation (if any) runs now, the state is invalidated and the slot is
// reset so later writers observe ErrNoState. Exactly one get per state
// returns the committed result.
func (s *state[T]) get() result.Result[T] {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn != nil {
		s.data = s.fn()
		s.fn = nil
	}
	r := s.data
	s.data = result.FromError[T](ErrNoState)
	s.valid = false
	return r
}

// wait blocks until the state is ready. Non-consuming; safe to call from
// multiple goroutines.
func (s *state[T]) wait() {
	<-s.done
}

// waitFor blocks until the state is ready or d elapses, and reports whether
// the state became ready.
func (s *state[T]) waitFor(d time.Duration) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return true
	case <-t.C:
		return s.isReady()
	}
}

// waitUntil blocks until the state is ready or the deadline passes.
func (s *state[T]) waitUntil(deadline time.Time) bool {
	return s.waitFor(time.Until(deadline))
}

// makeValid records that a Future has been produced from this state. A
// second call forces ErrFutureAlreadyRetrieved into the slot and marks the
// state ready, so later retrieval reports a clear diagnostic instead of
// hanging.
func (s *state[T]) makeValid() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		s.commitLocked(result.FromError[T](ErrFutureAlreadyRetrieved))
		return
	}
	s.valid = true
}

// breakPromise commits ErrBrokenPromise if no value was ever set, waking all
// waiters. Idempotent; a no-op once the state is ready.
func (s *state[T]) breakPromise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	s.commitLocked(result.FromError[T](ErrBrokenPromise))
}

func (s *state[T]) isValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

func (s *state[T]) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
