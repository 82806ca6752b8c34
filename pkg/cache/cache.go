// Package cache provides an in-memory LRU cache for compiled bytecode,
// keyed on a hash of the source the bytecode was compiled from.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emberscript/emberc/pkg/ir"
)

// Entry represents one cached compilation result.
type Entry struct {
	Key         string
	Bytecode    *ir.Bytecode
	ExpiresAt   time.Time
	CreatedAt   time.Time
	AccessedAt  time.Time
	AccessCount uint64
}

// IsExpired reports whether the entry has passed its TTL.
func (e *Entry) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.ExpiresAt)
}

// Stats reports cache hit/miss/eviction counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Sets       uint64
	Evictions  uint64
	EntryCount int64
}

// LRUCache is a bytecode cache evicting least-recently-used entries once
// capacity is exceeded.
type LRUCache struct {
	mu        sync.RWMutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
	ttl       time.Duration
	onEvict   func(key string, bc *ir.Bytecode)
	stats     Stats

	stopCleanup chan struct{}
}

// LRUOption configures an LRUCache constructed by NewLRUCache.
type LRUOption func(*LRUCache)

// WithCapacity sets the maximum number of entries the cache holds.
func WithCapacity(capacity int) LRUOption {
	return func(c *LRUCache) { c.capacity = capacity }
}

// WithDefaultTTL sets the TTL applied to entries stored with ttl == 0.
func WithDefaultTTL(ttl time.Duration) LRUOption {
	return func(c *LRUCache) { c.ttl = ttl }
}

// WithOnEvict installs a callback invoked whenever an entry is evicted or
// deleted.
func WithOnEvict(fn func(key string, bc *ir.Bytecode)) LRUOption {
	return func(c *LRUCache) { c.onEvict = fn }
}

// NewLRUCache creates a bytecode cache and starts its background expired-
// entry sweep. Call Close to stop the sweep goroutine.
func NewLRUCache(opts ...LRUOption) *LRUCache {
	c := &LRUCache{
		capacity:    256,
		items:       make(map[string]*list.Element),
		evictList:   list.New(),
		ttl:         0,
		stopCleanup: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.cleanup()

	return c
}

// SourceKey hashes source bytes plus the compiler options fingerprint into
// a cache key, so two identical sources compiled under different options
// (e.g. MaxParams) never collide.
func SourceKey(source []byte, optsFingerprint string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte{0})
	h.Write([]byte(optsFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached compilation by key.
func (c *LRUCache) Get(key string) (*ir.Bytecode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		atomic.AddUint64(&c.stats.Misses, 1)
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if entry.IsExpired() {
		c.removeElement(elem)
		atomic.AddUint64(&c.stats.Misses, 1)
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	entry.AccessedAt = time.Now()
	entry.AccessCount++

	atomic.AddUint64(&c.stats.Hits, 1)
	return entry.Bytecode, true
}

// Set stores a compiled bytecode unit. ttl == 0 uses the cache's default TTL.
func (c *LRUCache) Set(key string, bc *ir.Bytecode, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.ttl
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	entry := &Entry{
		Key:        key,
		Bytecode:   bc,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
		AccessedAt: time.Now(),
	}

	if elem, ok := c.items[key]; ok {
		c.evictList.MoveToFront(elem)
		elem.Value = entry
		atomic.AddUint64(&c.stats.Sets, 1)
		return
	}

	for c.evictList.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.evictList.PushFront(entry)
	c.items[key] = elem
	atomic.AddUint64(&c.stats.Sets, 1)
	atomic.AddInt64(&c.stats.EntryCount, 1)
}

// Delete removes an entry by key, if present.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear empties the cache.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.items {
		if c.onEvict != nil {
			c.onEvict(key, elem.Value.(*Entry).Bytecode)
		}
		delete(c.items, key)
	}

	c.evictList.Init()
	atomic.StoreInt64(&c.stats.EntryCount, 0)
}

// Stats returns a snapshot of the cache's counters.
func (c *LRUCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:       atomic.LoadUint64(&c.stats.Hits),
		Misses:     atomic.LoadUint64(&c.stats.Misses),
		Sets:       atomic.LoadUint64(&c.stats.Sets),
		Evictions:  atomic.LoadUint64(&c.stats.Evictions),
		EntryCount: int64(c.evictList.Len()),
	}
}

// Close stops the background expired-entry sweep.
func (c *LRUCache) Close() {
	close(c.stopCleanup)
}

func (c *LRUCache) evictOldest() {
	elem := c.evictList.Back()
	if elem != nil {
		c.removeElement(elem)
		atomic.AddUint64(&c.stats.Evictions, 1)
	}
}

func (c *LRUCache) removeElement(elem *list.Element) {
	entry := c.evictList.Remove(elem).(*Entry)
	delete(c.items, entry.Key)
	atomic.AddInt64(&c.stats.EntryCount, -1)

	if c.onEvict != nil {
		c.onEvict(entry.Key, entry.Bytecode)
	}
}

func (c *LRUCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for _, elem := range c.items {
				if elem.Value.(*Entry).IsExpired() {
					c.removeElement(elem)
				}
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}
