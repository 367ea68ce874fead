package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/numidx/internal/resource"
)

// Options configures an LRU.
type Options[V any] struct {
	// MaxEntries bounds the number of cached values. Zero means unbounded.
	MaxEntries int
	// MaxBytes bounds the summed Sizer result. Zero means unbounded.
	MaxBytes int64
	// Sizer estimates the memory held by a value. If nil every value counts
	// as one byte.
	Sizer func(V) int64
	// Controller, if set, tracks cached bytes against a global budget.
	Controller *resource.Controller
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries   int
	Bytes     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// LRU is a capacity-bounded least-recently-used cache.
// It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	sizer      func(V) int64
	rc         *resource.Controller

	size      int64
	items     map[K]*list.Element
	evictList *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// NewLRU creates a new LRU.
func NewLRU[K comparable, V any](opts Options[V]) *LRU[K, V] {
	sizer := opts.Sizer
	if sizer == nil {
		sizer = func(V) int64 { return 1 }
	}
	return &LRU[K, V]{
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		sizer:      sizer,
		rc:         opts.Controller,
		items:      make(map[K]*list.Element),
		evictList:  list.New(),
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set stores value under key, evicting least recently used entries as
// needed. It reports whether the value was admitted.
func (c *LRU[K, V]) Set(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := c.sizer(value)
	if c.maxBytes > 0 && itemSize > c.maxBytes {
		return false
	}

	if ent, ok := c.items[key]; ok {
		// Replace in place; the old value stays if the budget refuses growth.
		e := ent.Value.(*entry[K, V])
		if delta := itemSize - e.size; delta > 0 {
			if err := c.rc.AcquireMemory(delta); err != nil {
				return false
			}
		} else {
			c.rc.ReleaseMemory(-delta)
		}
		c.size += itemSize - e.size
		e.value = value
		e.size = itemSize
		c.evictList.MoveToFront(ent)
		c.evict()
		return true
	}

	// Make room locally first so released bytes are available to the controller.
	for c.overLimit(1, itemSize) {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
		c.evictions.Add(1)
	}

	if err := c.rc.AcquireMemory(itemSize); err != nil {
		return false
	}

	element := c.evictList.PushFront(&entry[K, V]{key: key, value: value, size: itemSize})
	c.items[key] = element
	c.size += itemSize
	return true
}

// Invalidate removes all entries whose key matches predicate.
func (c *LRU[K, V]) Invalidate(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Purge removes every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e := c.evictList.Back(); e != nil; e = c.evictList.Back() {
		c.removeElement(e)
	}
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Bytes returns the summed size of the cached entries.
func (c *LRU[K, V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns the current counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	entries, size := len(c.items), c.size
	c.mu.Unlock()

	return Stats{
		Entries:   entries,
		Bytes:     size,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *LRU[K, V]) overLimit(addEntries int, addBytes int64) bool {
	if c.evictList.Len() == 0 {
		return false
	}
	if c.maxEntries > 0 && len(c.items)+addEntries > c.maxEntries {
		return true
	}
	return c.maxBytes > 0 && c.size+addBytes > c.maxBytes
}

func (c *LRU[K, V]) evict() {
	for c.overLimit(0, 0) {
		c.removeElement(c.evictList.Back())
		c.evictions.Add(1)
	}
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.items, kv.key)
	c.size -= kv.size
	c.rc.ReleaseMemory(kv.size)
}
