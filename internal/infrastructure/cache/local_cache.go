// Package cache provides the two-tier snapshot cache: a bounded in-process
// LRU in front of Redis.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// LocalCache provides thread-safe in-memory caching with LRU eviction
type LocalCache struct {
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	now     func() time.Time
	mu      sync.Mutex
}

// localCacheItem represents a cached item with TTL
type localCacheItem struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// NewLocalCache creates a new local cache with specified maximum size
func NewLocalCache(maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 1000 // Default size
	}

	return &LocalCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves an item and marks it as recently used
func (lc *LocalCache) Get(key string) ([]byte, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	elem, exists := lc.items[key]
	if !exists {
		return nil, false
	}

	item := elem.Value.(*localCacheItem)
	if lc.now().After(item.expiresAt) {
		lc.removeElement(elem)
		return nil, false
	}

	lc.order.MoveToFront(elem)
	return item.data, true
}

// Set stores an item in the cache with TTL
func (lc *LocalCache) Set(key string, data []byte, ttl time.Duration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	expiresAt := lc.now().Add(ttl)

	if elem, exists := lc.items[key]; exists {
		item := elem.Value.(*localCacheItem)
		item.data = data
		item.expiresAt = expiresAt
		lc.order.MoveToFront(elem)
		return
	}

	lc.items[key] = lc.order.PushFront(&localCacheItem{
		key:       key,
		data:      data,
		expiresAt: expiresAt,
	})

	for lc.order.Len() > lc.maxSize {
		lc.removeElement(lc.order.Back())
	}
}

// Delete removes an item from the cache
func (lc *LocalCache) Delete(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if elem, exists := lc.items[key]; exists {
		lc.removeElement(elem)
	}
}

// Exists checks if a key exists in the cache (and is not expired)
func (lc *LocalCache) Exists(key string) bool {
	_, ok := lc.Get(key)
	return ok
}

// Size returns the current number of items in the cache
func (lc *LocalCache) Size() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.order.Len()
}

// Clear removes all items from the cache
func (lc *LocalCache) Clear() {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.items = make(map[string]*list.Element)
	lc.order.Init()
}

// InvalidatePrefix removes all keys starting with prefix
func (lc *LocalCache) InvalidatePrefix(prefix string) int {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	removed := 0
	for key, elem := range lc.items {
		if strings.HasPrefix(key, prefix) {
			lc.removeElement(elem)
			removed++
		}
	}
	return removed
}

// CleanupExpired removes all expired items from the cache
func (lc *LocalCache) CleanupExpired() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.now()
	removed := 0
	for _, elem := range lc.items {
		if now.After(elem.Value.(*localCacheItem).expiresAt) {
			lc.removeElement(elem)
			removed++
		}
	}
	return removed
}

func (lc *LocalCache) removeElement(elem *list.Element) {
	item := lc.order.Remove(elem).(*localCacheItem)
	delete(lc.items, item.key)
}
