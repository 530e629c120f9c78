// Package cache is a small TTL memoizer for values recomputed from the roster
// and match set.
//
// A Cache is not safe for concurrent use; callers guard it and make sure only
// one recomputation per key is in flight.
package cache

import "time"

type entry[V any] struct {
	value      V
	computedAt time.Time
}

type Cache[K comparable, V any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[K]entry[V]
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return NewWithClock[K, V](ttl, time.Now)
}

func NewWithClock[K comparable, V any](ttl time.Duration, now func() time.Time) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[K]entry[V]),
	}
}

func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value if it was computed less than ttl ago. Expired
// entries are dropped.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.computedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.entries[key] = entry[V]{value: value, computedAt: c.now()}
}

func (c *Cache[K, V]) Delete(key K) {
	delete(c.entries, key)
}

// DeleteFunc drops every key matching fn.
func (c *Cache[K, V]) DeleteFunc(fn func(K) bool) {
	for k := range c.entries {
		if fn(k) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache[K, V]) Purge() {
	clear(c.entries)
}

func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}
