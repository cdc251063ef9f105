package cache

import (
	"container/list"
	"sync"
)

// Cache is a generic thread-safe LRU map with a fixed capacity.
// When an insertion exceeds capacity, the least recently used entry is
// evicted and handed to the eviction callback, if any.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*list.Element
	order    *list.List // front = most recently used
	capacity int
	onEvict  func(K, V)

	hits   uint64
	misses uint64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache holding at most capacity entries.
// A capacity <= 0 means unlimited.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// OnEvict sets the function called with each evicted or deleted entry.
// The callback runs with the cache lock held and must not call back into
// the cache.
func (c *Cache[K, V]) OnEvict(f func(K, V)) {
	c.mu.Lock()
	c.onEvict = f
	c.mu.Unlock()
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Set stores a value, replacing any existing value for key. A replaced
// value is not passed to the eviction callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.insertLocked(key, value)
}

// GetOrCreate returns the cached value or creates, stores and returns it.
// create is called under the cache lock, so concurrent callers never
// build the same entry twice.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.hits++
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value
	}
	c.misses++
	value := create()
	c.insertLocked(key, value)
	return value
}

// Delete removes an entry, passing it to the eviction callback.
// Returns true if the entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// Purge removes every entry, passing each to the eviction callback.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; el = c.order.Back() {
		c.removeLocked(el)
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:      len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// insertLocked adds a new entry and evicts down to capacity.
// Caller must hold c.mu.
func (c *Cache[K, V]) insertLocked(key K, value V) {
	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	for c.capacity > 0 && len(c.entries) > c.capacity {
		c.removeLocked(c.order.Back())
	}
}

// removeLocked unlinks el and runs the eviction callback.
// Caller must hold c.mu.
func (c *Cache[K, V]) removeLocked(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.entries, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries (0 = unlimited).
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
}
