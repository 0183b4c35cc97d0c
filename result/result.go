// Package result provides the value-or-error container carried through the
// shared state of a promise-future pair.
//
// A Result is a tagged union: it holds either a value or an error, never
// both. The zero Result holds the zero value and a nil error, which counts
// as a value.
package result

// Result holds either a value of type T or an error.
type Result[T any] struct {
	value T
	err   error
}

// FromValue returns a Result holding v.
func FromValue[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// FromError returns a Result holding err.
// If err is nil the Result holds the zero value instead.
func FromError[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Of builds a Result from Go's conventional (value, error) pair.
// A non-nil err wins over the value.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{err: err}
	}
	return Result[T]{value: v}
}

// HasValue reports whether the Result holds a value.
func (r Result[T]) HasValue() bool {
	return r.err == nil
}

// Value returns the held value, or the zero value if the Result holds an
// error.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the held error, or nil if the Result holds a value.
func (r Result[T]) Err() error {
	return r.err
}

// Get unwraps the Result into Go's conventional (value, error) pair.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Void is the value type of completion-only results: futures that report
// that something happened, not what it produced.
type Void struct{}
