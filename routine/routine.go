package routine

import (
	"time"
)

// RunSafe runs fn synchronously, recovering any panic. The cleanup
// functions (if provided) run in order with the panic value; the panic does
// not propagate to the caller.
func RunSafe(fn func(), cleanup ...func(r interface{})) {
	defer Recover(cleanup...)

	fn()
}

// GoSafe runs fn on a new goroutine, recovering any panic so a misbehaving
// task cannot crash the process. The cleanup functions (if provided) run in
// order with the panic value.
func GoSafe(fn func(), cleanup ...func(r interface{})) {
	go RunSafe(fn, cleanup...)
}

// RunWithTimeout runs fn on a new goroutine and waits for it to finish or
// for timeout to elapse, reporting whether fn finished in time. A timed-out
// fn keeps running in the background; it is not cancelled.
func RunWithTimeout(fn func(), timeout time.Duration) bool {
	done := make(chan struct{})

	GoSafe(func() {
		fn()
		close(done)
	})

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
