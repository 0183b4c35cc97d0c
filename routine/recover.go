package routine

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// Recover absorbs an in-flight panic. Must be used directly in a defer. The
// cleanup functions run in order with the recovered value.
func Recover(cleanups ...func(r interface{})) {
	if r := recover(); r != nil {
		for _, cleanup := range cleanups {
			cleanup(r)
		}
	}
}

// Recovered carries a recovered panic value together with the program
// counters of the panic site.
type Recovered struct {
	Value   interface{}
	Callers []uintptr
}

// NewRecovered captures the current call stack, skipping skip frames, and
// pairs it with the recovered value.
func NewRecovered(skip int, value interface{}) *Recovered {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	return &Recovered{
		Value:   value,
		Callers: callers[:n],
	}
}

// AsError converts the recovered panic into an error exposing the captured
// stack trace.
func (p *Recovered) AsError() error {
	if p == nil {
		return nil
	}
	return &RecoveredError{p}
}

type RecoveredError struct {
	*Recovered
}

func (e *RecoveredError) Error() string {
	return fmt.Sprintf("panic: %v\nstacktrace:%+v", e.Value, e.StackTrace())
}

// StackTrace exposes the panic site in the format used by
// github.com/pkg/errors, so %+v formatting prints file and line per frame.
func (e *RecoveredError) StackTrace() errors.StackTrace {
	if e == nil {
		return nil
	}
	frames := make([]errors.Frame, len(e.Callers))
	for i, pc := range e.Callers {
		frames[i] = errors.Frame(pc)
	}
	return frames
}
