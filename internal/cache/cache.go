package cache

import "sync"

// Cache is an ordered collection guarded by a single mutex.
type Cache[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty Cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{}
}

// Add appends an item.
func (c *Cache[T]) Add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, item)
}

// AddAll appends items in order.
func (c *Cache[T]) AddAll(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, items...)
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

// Replace swaps the contents for items. Readers observe either the old or the
// new contents, never a mix.
func (c *Cache[T]) Replace(items []T) {
	next := make([]T, len(items))
	copy(next, items)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = next
}

// Snapshot returns a copy of the current contents.
func (c *Cache[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
