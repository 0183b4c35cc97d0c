package future

import (
	"github.com/saltfishpr/futures/result"
)

// Promise is the producer handle on a shared state. It delivers a value or
// error exactly once and fires the continuation registered by the consumer
// side.
//
// A Promise that goes out of use without delivering must be Break()-ed so
// waiters resolve to ErrBrokenPromise instead of blocking forever.
// A Promise must not be copied after first use.
type Promise[T any] struct {
	state *state[T]
	cont  *continuation
}

// NewPromise allocates a fresh shared state and continuation pair.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{
		state: newState[T](),
		cont:  &continuation{},
	}
}

func (p *Promise[T]) mustState(op string) {
	if p == nil || p.state == nil {
		panic("future: " + op + " called on a promise with no shared state")
	}
}

// Future returns the consumer handle sharing this Promise's state. At most
// one live Future may be derived from a Promise: a second call poisons the
// shared state with ErrFutureAlreadyRetrieved, so both handles report the
// anomaly instead of racing for the result. Panics if the Promise has no
// shared state.
func (p *Promise[T]) Future() *Future[T] {
	return p.FutureWithCleanup(nil)
}

// FutureWithCleanup is Future with a cleanup callable attached: the
// Future's Release runs it when the Future is abandoned while the producer
// has not delivered yet.
func (p *Promise[T]) FutureWithCleanup(cleanup func()) *Future[T] {
	p.mustState("Future")
	p.state.makeValid()
	return &Future[T]{state: p.state, cont: p.cont, cleanup: cleanup}
}

// SetValue delivers a value. A duplicate delivery degrades the slot to
// ErrPromiseAlreadySatisfied (or ErrNoState if the result was already
// consumed). Panics if the Promise has no shared state.
func (p *Promise[T]) SetValue(v T) {
	p.mustState("SetValue")
	p.complete(result.FromValue(v))
}

// SetError delivers an error. Duplicate-delivery handling matches SetValue.
func (p *Promise[T]) SetError(err error) {
	p.mustState("SetError")
	p.complete(result.FromError[T](err))
}

// Set delivers Go's conventional (value, error) pair: a non-nil err delivers
// the error, otherwise the value.
func (p *Promise[T]) Set(v T, err error) {
	p.mustState("Set")
	p.complete(result.Of(v, err))
}

// SetFunc stores a deferred computation instead of an immediate value; it
// runs lazily inside the first consuming read. Continuations are
// deliberately not fired here, since the value is unknown until someone asks.
func (p *Promise[T]) SetFunc(fn func() result.Result[T]) {
	p.mustState("SetFunc")
	p.state.setFunc(fn)
}

// complete writes r into the shared state and fires a registered
// continuation. The continuation is locked around both steps: state is
// written before the callback fires, so a callback observing ready always
// reads the committed value, and a racing Break cannot interleave.
func (p *Promise[T]) complete(r result.Result[T]) {
	cont := p.cont
	if cont == nil {
		p.state.setResult(r)
		return
	}
	cont.mu.Lock()
	defer cont.mu.Unlock()
	p.state.setResult(r)
	cont.fire()
}

// Break abandons the Promise. If no value was ever delivered the shared
// state resolves to ErrBrokenPromise, waking waiters and firing a pending
// continuation. Idempotent; the Promise holds no shared state afterwards.
func (p *Promise[T]) Break() {
	if p == nil || p.state == nil {
		return
	}
	st, cont := p.state, p.cont
	p.state, p.cont = nil, nil
	if cont == nil {
		st.breakPromise()
		return
	}
	cont.mu.Lock()
	defer cont.mu.Unlock()
	st.breakPromise()
	cont.fire()
}
