package cache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is reported by Get when a key is absent or its entry expired.
var ErrCacheMiss = errors.New("cache: miss")

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-process Cache bounded by an LRU policy. Writing into a
// full cache evicts the least recently used entry; expired entries are
// dropped lazily on access. Safe for concurrent use.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// NewMemoryCache returns a MemoryCache holding at most capacity entries.
// Panics if capacity is not positive.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	return &MemoryCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Set stores value under key. A zero expiration keeps the entry until it is
// evicted or deleted.
func (c *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, hit := c.items[key]; hit {
		c.ll.MoveToFront(elem)
		ent := elem.Value.(*memoryEntry)
		ent.value = value
		ent.expiresAt = expiresAt
		return nil
	}

	if c.ll.Len() >= c.capacity {
		if back := c.ll.Back(); back != nil {
			c.removeElement(back)
		}
	}
	c.items[key] = c.ll.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
	return nil
}

// Get returns the value under key, promoting the entry to most recently
// used. Absent and expired keys report ErrCacheMiss.
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, hit := c.items[key]
	if !hit {
		return nil, ErrCacheMiss
	}
	ent := elem.Value.(*memoryEntry)
	if ent.expired(time.Now()) {
		c.removeElement(elem)
		return nil, ErrCacheMiss
	}
	c.ll.MoveToFront(elem)
	return ent.value, nil
}

// Del removes the entry under key, if any.
func (c *MemoryCache) Del(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, hit := c.items[key]; hit {
		c.removeElement(elem)
	}
	return nil
}

// Len returns the number of entries currently held, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *MemoryCache) removeElement(e *list.Element) {
	c.ll.Remove(e)
	delete(c.items, e.Value.(*memoryEntry).key)
}
