// Package cache provides a small in-memory TTL cache with insertion-order eviction.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
}

// Cache holds values for a fixed TTL. When full, the least recently
// inserted key is evicted; reads do not refresh position.
type Cache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List // front is oldest
	index      map[string]*list.Element
	now        func() time.Time
}

// New creates a Cache with the given TTL and max entry count. A maxEntries
// of zero or less means no limit.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		index:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Get returns the value for key if present and not expired. Expired entries
// are dropped on read.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.now().After(e.expires) {
		c.remove(el)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL. Overwriting moves the key to
// the newest position.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.remove(el)
	}
	for c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		c.remove(c.order.Front())
	}
	e := &entry[V]{key: key, value: value, expires: c.now().Add(c.ttl)}
	c.index[key] = c.order.PushBack(e)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.remove(el)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove must be called with mu held.
func (c *Cache[V]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*entry[V]).key)
}
