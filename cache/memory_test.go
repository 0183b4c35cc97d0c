package cache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltfishpr/futures/cache"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := cache.NewMemoryCache(4)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Set("k", []byte("v2"), 0))
	v, err = c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCacheMiss(t *testing.T) {
	c := cache.NewMemoryCache(4)

	_, err := c.Get("absent")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemoryCacheDel(t *testing.T) {
	c := cache.NewMemoryCache(4)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	require.NoError(t, c.Del("k"))
	_, err := c.Get("k")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, c.Del("absent"))
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	c := cache.NewMemoryCache(2)

	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Set("b", []byte("2"), 0))

	// touch a so b becomes the eviction victim
	_, err := c.Get("a")
	require.NoError(t, err)

	require.NoError(t, c.Set("c", []byte("3"), 0))
	assert.Equal(t, 2, c.Len())

	_, err = c.Get("b")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get("a")
	assert.NoError(t, err)
	_, err = c.Get("c")
	assert.NoError(t, err)
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := cache.NewMemoryCache(4)

	require.NoError(t, c.Set("k", []byte("v"), 20*time.Millisecond))

	_, err := c.Get("k")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	_, err = c.Get("k")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemoryCacheInvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { cache.NewMemoryCache(0) })
}

func ExampleFetch() {
	c := cache.NewMemoryCache(128)

	load := func() (string, error) {
		fmt.Println("loading...")
		return "value", nil
	}

	v, _ := cache.Fetch(c, "key", load)
	fmt.Println(v)

	// the second fetch hits the cache
	v, _ = cache.Fetch(c, "key", load)
	fmt.Println(v)

	// Output:
	// loading...
	// value
	// value
}
