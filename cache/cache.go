// Package cache provides read-through caching for expensive computations,
// with asynchronous variants that resolve through futures and a shared-fetch
// mode that collapses concurrent loads of the same key into one.
package cache

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/saltfishpr/futures/future"
)

// Cache is a byte-oriented key-value store. Set's expiration is advisory;
// stores without TTL support may ignore it.
type Cache interface {
	Set(key string, value []byte, expiration time.Duration) error
	Get(key string) ([]byte, error)
	Del(key string) error
}

type fetchOptions struct {
	expiration  time.Duration
	marshalFn   func(interface{}) ([]byte, error)
	unmarshalFn func([]byte, interface{}) error
	onSetError  func(key string, err error)
}

type FetchOption func(*fetchOptions)

func WithExpiration(d time.Duration) FetchOption {
	return func(opts *fetchOptions) {
		opts.expiration = d
	}
}

func WithMarshalFunc(marshalFn func(interface{}) ([]byte, error)) FetchOption {
	return func(opts *fetchOptions) {
		opts.marshalFn = marshalFn
	}
}

func WithUnmarshalFunc(unmarshalFn func([]byte, interface{}) error) FetchOption {
	return func(opts *fetchOptions) {
		opts.unmarshalFn = unmarshalFn
	}
}

// WithSetErrorCallback observes write-back failures. A fetch whose write-back
// fails still returns the computed value.
func WithSetErrorCallback(fn func(key string, err error)) FetchOption {
	return func(opts *fetchOptions) {
		opts.onSetError = fn
	}
}

// Fetch returns the cached value under key, or computes it with fn and writes
// it back. A nil Cache degrades to calling fn directly.
func Fetch[T any](c Cache, key string, fn func() (T, error), options ...FetchOption) (T, error) {
	if c == nil {
		return fn()
	}

	opts := fetchOptions{
		expiration:  5 * time.Minute,
		marshalFn:   json.Marshal,
		unmarshalFn: json.Unmarshal,
	}
	for _, option := range options {
		option(&opts)
	}

	data, err := c.Get(key)
	if err == nil {
		var v T
		if err := opts.unmarshalFn(data, &v); err == nil {
			return v, nil
		}
	}

	val, err := fn()
	if err != nil {
		return val, err
	}

	setValue := func() error {
		data, err := opts.marshalFn(val)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := c.Set(key, data, opts.expiration); err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	if err := setValue(); err != nil {
		if opts.onSetError != nil {
			opts.onSetError(key, err)
		}
	}

	return val, nil
}

// FetchAsync is Fetch off the caller's goroutine: it returns immediately and
// resolves the future with the cached or computed value.
func FetchAsync[T any](c Cache, key string, fn func() (T, error), options ...FetchOption) *future.Future[T] {
	return future.Async(func() (T, error) {
		return Fetch(c, key, fn, options...)
	})
}

// Group deduplicates concurrent fetches: while a load for a key is in flight,
// further fetches of that key wait for it instead of computing again.
type Group struct {
	c  Cache
	sf singleflight.Group
}

func NewGroup(c Cache) *Group {
	return &Group{c: c}
}

// FetchShared is Fetch through g's in-flight deduplication.
func FetchShared[T any](g *Group, key string, fn func() (T, error), options ...FetchOption) (T, error) {
	v, err, _ := g.sf.Do(key, func() (interface{}, error) {
		return Fetch(g.c, key, fn, options...)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// FetchSharedAsync is FetchShared off the caller's goroutine.
func FetchSharedAsync[T any](g *Group, key string, fn func() (T, error), options ...FetchOption) *future.Future[T] {
	return future.Async(func() (T, error) {
		return FetchShared(g, key, fn, options...)
	})
}
