package future

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThenAfterReady(t *testing.T) {
	f := Done(10)

	fired := false
	out := Then(f, func(val int, err error) (string, error) {
		fired = true
		return fmt.Sprintf("%d", val*2), err
	})

	// the source was ready, so the callback ran inside Then
	assert.True(t, fired)
	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, "20", v)
}

func TestThenBeforeReady(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	fired := make(chan int, 1)
	out := Then(f, func(val int, err error) (int, error) {
		fired <- val
		return val + 1, err
	})

	select {
	case <-fired:
		t.Fatal("callback must not run before delivery")
	default:
	}

	p.SetValue(41)
	assert.Equal(t, 41, <-fired)

	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestThenInvalidatesSource(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	out := Then(f, func(val int, err error) (int, error) { return val, err })

	assert.False(t, f.Valid(), "then moves the state away from the source")

	p.SetValue(1)
	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestThenNilCallback(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	out := Then[int, int](f, nil)
	assert.False(t, out.Valid())
	assert.True(t, f.Valid(), "a nil callback leaves the source untouched")

	p.SetValue(1)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestThenOnInvalidFuture(t *testing.T) {
	out := Then(&Future[int]{}, func(val int, err error) (int, error) { return val, err })
	_, err := out.Get()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestThenChainOrder(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	order := make(chan string, 2)
	second := Then(f, func(val int, err error) (int, error) {
		order <- "first"
		return val + 1, err
	})
	third := Then(second, func(val int, err error) (int, error) {
		order <- "second"
		return val * 10, err
	})

	p.SetValue(1)
	assert.Equal(t, "first", <-order)
	assert.Equal(t, "second", <-order)

	v, err := third.Get()
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestThenReceivesBrokenPromise(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	out := Then(f, func(val int, err error) (int, error) {
		return val, err
	})

	p.Break()

	_, err := out.Get()
	assert.ErrorIs(t, err, ErrBrokenPromise)
}

func TestThenPanicInCallback(t *testing.T) {
	f := Done(1)

	out := Then(f, func(val int, err error) (int, error) {
		panic("callback exploded")
	})

	_, err := out.Get()
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "callback exploded")
}

func TestMap(t *testing.T) {
	f := Done2(0, errors.New("upstream failed"))

	out := Map(f, func(val int, err error) string {
		if err != nil {
			return "fallback"
		}
		return fmt.Sprintf("%d", val)
	})

	v, err := out.Get()
	require.NoError(t, err, "map always resolves successfully")
	assert.Equal(t, "fallback", v)
}

func TestComposeReadyInner(t *testing.T) {
	f := Done(1)

	out := Compose(f, func(val int, err error) *Future[int] {
		return Done(7)
	})

	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v, "an already-ready inner future is flattened, not double-wrapped")
}

func TestComposePendingInner(t *testing.T) {
	inner := NewPromise[int]()

	f := Done(1)
	out := Compose(f, func(val int, err error) *Future[int] {
		return inner.Future()
	})

	assert.False(t, out.Ready())

	inner.SetValue(7)
	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestComposeNilInner(t *testing.T) {
	f := Done(1)

	out := Compose(f, func(val int, err error) *Future[int] {
		return nil
	})

	_, err := out.Get()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestFinally(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	observed := make(chan error, 1)
	done := Finally(f, func(val int, err error) {
		observed <- err
	})

	p.SetError(errors.New("observed failure"))

	assert.EqualError(t, <-observed, "observed failure")
	_, err := done.Get()
	assert.NoError(t, err, "the completion future resolves even when the source failed")
}

func TestThenWithExecutor(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	var submitted atomic.Int32
	exec := ExecutorFunc(func(task func()) {
		submitted.Add(1)
		go task()
	})

	require.True(t, f.SetExecutor(exec))
	assert.False(t, f.SetExecutor(exec), "first setter wins")

	out := Then(f, func(val int, err error) (int, error) {
		return val * 2, err
	})

	p.SetValue(21)

	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), submitted.Load())
}

func TestThenExecutorDeferredWhenAlreadyReady(t *testing.T) {
	f := Done(5)

	var submitted atomic.Int32
	exec := ExecutorFunc(func(task func()) {
		submitted.Add(1)
		go task()
	})
	require.True(t, f.SetExecutor(exec))

	out := Then(f, func(val int, err error) (int, error) {
		return val + 1, err
	})

	v, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, int32(1), submitted.Load(), "a ready source still defers through the executor")
}

func TestExecutorContextPropagates(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	var submitted atomic.Int32
	exec := ExecutorFunc(func(task func()) {
		submitted.Add(1)
		task()
	})
	require.True(t, f.SetExecutor(exec))

	second := Then(f, func(val int, err error) (int, error) { return val + 1, err })
	third := Then(second, func(val int, err error) (int, error) { return val * 2, err })

	p.SetValue(1)

	v, err := third.Get()
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, int32(2), submitted.Load(), "the context rides along the chain")
}

func TestThenConcurrentWithDelivery(t *testing.T) {
	// hammer the registration/delivery race: whichever side wins, the
	// callback runs exactly once with the committed value
	for i := 0; i < 200; i++ {
		p := NewPromise[int]()
		f := p.Future()

		start := make(chan struct{})
		outCh := make(chan *Future[int], 1)
		go func() {
			<-start
			outCh <- Then(f, func(val int, err error) (int, error) { return val, err })
		}()
		go func() {
			<-start
			p.SetValue(i)
		}()
		close(start)

		out := <-outCh
		v, err := out.Get()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestThenWaitForDownstream(t *testing.T) {
	p := NewPromise[int]()
	f := p.Future()

	out := Then(f, func(val int, err error) (int, error) { return val, err })

	assert.False(t, out.WaitFor(10*time.Millisecond))
	p.SetValue(1)
	assert.True(t, out.WaitFor(time.Second))
}
