// Package lrucache implements a bounded, generic least-recently-used
// cache on top of container/list and a plain map, grounded on the token
// engine's own CLRUCache: Put evicts the oldest entry once the map grows
// past MaxSize, Get promotes its entry to the front, and SetSize never
// evicts on its own — a lowered ceiling only takes effect on the next Put.
//
// This is deliberately hand-rolled rather than built on a third-party LRU
// package: callers need to inspect final contents in eviction order and
// need a distinguished failure when the map and list disagree on size,
// neither of which a black-box cache exposes.
package lrucache

import (
	"container/list"

	"github.com/pkg/errors"
)

// ErrInconsistent is returned by Size when the backing map and list have
// drifted out of sync, which should never happen through the public API
// but is checked defensively since a silent mismatch would corrupt every
// eviction decision downstream.
var ErrInconsistent = errors.New("lrucache: inconsistent map/list sizes")

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a bounded LRU keyed by K holding values of type V. The zero
// value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	items   map[K]*list.Element
	order   *list.List // front = most recently used
	maxSize int
}

// New returns a cache that evicts its least-recently-used entry once Put
// would grow it past maxSize entries.
func New[K comparable, V any](maxSize int) *Cache[K, V] {
	return &Cache[K, V]{
		items:   make(map[K]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Put inserts or updates key's value and moves it to the front. If the
// cache now holds more than MaxSize entries, least-recently-used entries
// are evicted until it holds MaxSize.
func (c *Cache[K, V]) Put(key K, value V) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}

	el := c.order.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = el

	for len(c.items) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
}

// Get returns key's value and promotes it to the front, reporting false
// if key is not present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Exists reports whether key is present without affecting recency order.
func (c *Cache[K, V]) Exists(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Erase removes key if present; it is a no-op otherwise.
func (c *Cache[K, V]) Erase(key K) {
	el, ok := c.items[key]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.items, key)
}

// Clear empties the cache without changing MaxSize.
func (c *Cache[K, V]) Clear() {
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

// Size returns the number of entries currently held, or ErrInconsistent
// if the map and list have drifted out of sync.
func (c *Cache[K, V]) Size() (int, error) {
	if len(c.items) != c.order.Len() {
		return 0, ErrInconsistent
	}
	return len(c.items), nil
}

// MaxSize returns the current eviction ceiling.
func (c *Cache[K, V]) MaxSize() int {
	return c.maxSize
}

// SetSize changes the eviction ceiling. It does not itself evict entries
// when lowering the ceiling below the current size — the next Put will.
func (c *Cache[K, V]) SetSize(maxSize int) {
	c.maxSize = maxSize
}

// Keys returns keys from most- to least-recently-used, for callers that
// need to inspect eviction order directly.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}
