package server

import (
	"container/list"
	"sync"
)

// defaultCacheMaxBytes caps the total size of cached page bodies
const defaultCacheMaxBytes = 8 << 20

// CacheEntry is a cached page body
type CacheEntry struct {
	Key  string
	Body []byte
}

// Cache is a size- and count-bounded LRU of page bodies
type Cache struct {
	entries     map[string]*list.Element
	order       *list.List // front is most recently used
	maxEntries  int
	maxBytes    int64
	currentSize int64
	mu          sync.Mutex
}

// NewCache creates a cache holding at most maxEntries bodies
func NewCache(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		maxBytes:   defaultCacheMaxBytes,
	}
}

// Get returns a cached body and marks it as recently used
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*CacheEntry)
	c.order.MoveToFront(elem)
	return entry.Body, true
}

// Put stores a body, evicting least recently used entries to make room.
// A body larger than the whole cache is not stored.
func (c *Cache) Put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(body))
	if size > c.maxBytes {
		return
	}

	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}

	for c.order.Len() > 0 && (c.order.Len() >= c.maxEntries || c.currentSize+size > c.maxBytes) {
		c.remove(c.order.Back())
	}

	c.entries[key] = c.order.PushFront(&CacheEntry{Key: key, Body: body})
	c.currentSize += size
}

// remove drops an element; callers hold mu
func (c *Cache) remove(elem *list.Element) {
	entry := c.order.Remove(elem).(*CacheEntry)
	delete(c.entries, entry.Key)
	c.currentSize -= int64(len(entry.Body))
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Size returns the total number of cached bytes
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}
