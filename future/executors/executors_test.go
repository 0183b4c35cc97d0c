package executors_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/saltfishpr/futures/future/executors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGoExecutor(t *testing.T) {
	var wg sync.WaitGroup
	var ran atomic.Int32

	e := executors.GoExecutor{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		e.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(10), ran.Load())
}

func TestGoExecutorRecoversPanic(t *testing.T) {
	done := make(chan struct{})
	e := executors.GoExecutor{}
	e.Submit(func() {
		defer close(done)
		panic("dropped")
	})
	<-done
}

func TestPoolExecutorBoundsConcurrency(t *testing.T) {
	const maxWorkers = 2

	var running, peak atomic.Int32
	var wg sync.WaitGroup

	e := executors.NewPoolExecutor(maxWorkers)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		e.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(maxWorkers))
}

func TestAntsExecutor(t *testing.T) {
	e, err := executors.NewAntsExecutor(4)
	require.NoError(t, err)
	defer e.Release()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		e.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(20), ran.Load())
}

func TestAntsExecutorInlineAfterRelease(t *testing.T) {
	e, err := executors.NewAntsExecutor(1)
	require.NoError(t, err)
	e.Release()

	ran := false
	e.Submit(func() { ran = true })
	assert.True(t, ran, "a released pool runs tasks on the submitting goroutine")
}
