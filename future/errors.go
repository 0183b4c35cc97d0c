package future

import "errors"

var (
	// ErrNoState is reported when an operation is attempted on a Future or
	// Promise that has no shared state: default-constructed, released,
	// moved into a continuation, or already consumed.
	ErrNoState = errors.New("future: no associated state")
	// ErrBrokenPromise is reported when a Promise is broken (or discarded
	// via Break) before a value was ever set.
	ErrBrokenPromise = errors.New("future: broken promise")
	// ErrPromiseAlreadySatisfied is reported when a second SetValue/SetError
	// arrives after the first already committed.
	ErrPromiseAlreadySatisfied = errors.New("future: promise already satisfied")
	// ErrFutureAlreadyRetrieved is reported when Future is called more than
	// once on the same Promise.
	ErrFutureAlreadyRetrieved = errors.New("future: future already retrieved")

	// ErrPanic wraps a panic recovered from a user callback or submitted task.
	ErrPanic = errors.New("future: async panic")
	// ErrTimeout is reported by Timeout/Until wrappers when the deadline
	// elapses before the source future completes.
	ErrTimeout = errors.New("future: timeout")
)
