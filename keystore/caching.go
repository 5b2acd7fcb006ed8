package keystore

import (
	"container/list"
	"sync"
)

// CachingKeyStore fronts a backend with an LRU cache of decrypted entries.
// Loads are read-through, stores write-through, deletes remove from both.
// Useful in front of FileKeyStore, where every miss costs a PBKDF2 run.
type CachingKeyStore struct {
	backend  KeyStore
	capacity int

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List // front = most recent

	hits   uint64
	misses uint64

	closed bool
}

type cacheEntry struct {
	name  string
	entry Entry
}

// DefaultCacheCapacity is used when NewCachingKeyStore gets a non-positive capacity.
const DefaultCacheCapacity = 100

// NewCachingKeyStore wraps backend with an LRU of the given capacity.
func NewCachingKeyStore(backend KeyStore, capacity int) *CachingKeyStore {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &CachingKeyStore{
		backend:  backend,
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Load returns a copy from the cache, loading from the backend on a miss.
func (c *CachingKeyStore) Load(name string) (Entry, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Entry{}, ErrClosed
	}
	if elem, ok := c.cache[name]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		e := elem.Value.(*cacheEntry).entry.clone()
		c.mu.Unlock()
		return e, nil
	}
	c.misses++
	c.mu.Unlock()

	e, err := c.backend.Load(name)
	if err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		e.Wipe()
		return Entry{}, ErrClosed
	}
	c.addToCache(name, e)
	return e, nil
}

// Store writes to the backend, then caches.
func (c *CachingKeyStore) Store(name string, e Entry) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := c.backend.Store(name, e); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.addToCache(name, e)
	}
	return nil
}

// Delete evicts the entry and deletes it from the backend.
func (c *CachingKeyStore) Delete(name string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.removeFromCache(name)
	c.mu.Unlock()

	return c.backend.Delete(name)
}

// List delegates to the backend; the cache may hold only a subset.
func (c *CachingKeyStore) List() ([]string, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return c.backend.List()
}

// Close wipes the cache and closes the backend. Safe to call multiple times.
func (c *CachingKeyStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for _, elem := range c.cache {
		ce := elem.Value.(*cacheEntry)
		ce.entry.Wipe()
	}
	c.cache = nil
	c.lru = nil
	return c.backend.Close()
}

// Stats returns hits, misses and the hit rate in [0, 1].
func (c *CachingKeyStore) Stats() (hits, misses uint64, hitRate float64) {
	c.mu.Lock()
	hits, misses = c.hits, c.misses
	c.mu.Unlock()

	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return hits, misses, hitRate
}

// Len returns the number of cached entries.
func (c *CachingKeyStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Invalidate drops one name from the cache without touching the backend.
func (c *CachingKeyStore) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.removeFromCache(name)
	}
}

// addToCache must be called with the lock held.
func (c *CachingKeyStore) addToCache(name string, e Entry) {
	if elem, ok := c.cache[name]; ok {
		ce := elem.Value.(*cacheEntry)
		ce.entry.Wipe()
		ce.entry = e.clone()
		c.lru.MoveToFront(elem)
		return
	}
	if len(c.cache) >= c.capacity {
		if back := c.lru.Back(); back != nil {
			ce := back.Value.(*cacheEntry)
			ce.entry.Wipe()
			c.lru.Remove(back)
			delete(c.cache, ce.name)
		}
	}
	c.cache[name] = c.lru.PushFront(&cacheEntry{name: name, entry: e.clone()})
}

// removeFromCache must be called with the lock held.
func (c *CachingKeyStore) removeFromCache(name string) {
	if elem, ok := c.cache[name]; ok {
		ce := elem.Value.(*cacheEntry)
		ce.entry.Wipe()
		c.lru.Remove(elem)
		delete(c.cache, name)
	}
}

var _ KeyStore = (*CachingKeyStore)(nil)
