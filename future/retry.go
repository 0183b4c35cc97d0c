package future

import (
	"context"
	"time"
)

// RetryStrategy computes the backoff before the next attempt.
type RetryStrategy interface {
	// NextBackoff returns the delay after the given attempt; attempt starts
	// from 0.
	NextBackoff(attempt int) time.Duration
}

type fixedBackoff time.Duration

// FixedBackoff waits the same duration between every attempt.
func FixedBackoff(d time.Duration) RetryStrategy {
	return fixedBackoff(d)
}

func (f fixedBackoff) NextBackoff(attempt int) time.Duration {
	return time.Duration(f)
}

type linearBackoff time.Duration

// LinearBackoff grows the delay linearly with the attempt number.
func LinearBackoff(d time.Duration) RetryStrategy {
	return linearBackoff(d)
}

func (l linearBackoff) NextBackoff(attempt int) time.Duration {
	return time.Duration(l) * time.Duration(attempt+1)
}

type exponentialBackoff struct {
	baseDuration time.Duration
	maxDuration  time.Duration
}

// ExponentialBackoff doubles the delay after each attempt, capped at
// maxDuration.
func ExponentialBackoff(baseDuration, maxDuration time.Duration) RetryStrategy {
	return &exponentialBackoff{
		baseDuration: baseDuration,
		maxDuration:  maxDuration,
	}
}

func (e *exponentialBackoff) NextBackoff(attempt int) time.Duration {
	d := e.baseDuration * time.Duration(1<<attempt)
	if d > e.maxDuration {
		return e.maxDuration
	}
	return d
}

type retryOptions struct {
	maxAttempts   int
	retryStrategy RetryStrategy
	shouldRetry   func(err error) bool
}

type RetryOption func(*retryOptions)

func WithMaxAttempts(maxAttempts int) RetryOption {
	return func(opts *retryOptions) {
		opts.maxAttempts = maxAttempts
	}
}

func WithRetryStrategy(strategy RetryStrategy) RetryOption {
	return func(opts *retryOptions) {
		opts.retryStrategy = strategy
	}
}

func WithShouldRetryFunc(fn func(err error) bool) RetryOption {
	return func(opts *retryOptions) {
		opts.shouldRetry = fn
	}
}

// Retry runs f asynchronously on the default executor, retrying failed
// attempts per the options (3 attempts with a fixed 100ms backoff unless
// configured otherwise), and resolves with the final outcome. Context
// cancellation stops the attempts and resolves with ctx.Err().
func Retry[T any](ctx context.Context, f func(ctx context.Context) (T, error), options ...RetryOption) *Future[T] {
	opts := retryOptions{
		maxAttempts:   3,
		retryStrategy: FixedBackoff(100 * time.Millisecond),
	}
	for _, option := range options {
		option(&opts)
	}

	return CtxSubmit(ctx, executor, func(ctx context.Context) (T, error) {
		var zero T
		var lastErr error
		for attempt := 0; attempt < opts.maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return zero, err
			}

			val, err := f(ctx)
			if err == nil {
				return val, nil
			}
			lastErr = err

			if opts.shouldRetry != nil && !opts.shouldRetry(err) {
				break
			}
			if attempt == opts.maxAttempts-1 {
				break
			}

			select {
			case <-time.After(opts.retryStrategy.NextBackoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		return zero, lastErr
	})
}
