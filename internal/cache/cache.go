// Package cache memoizes engine responses under a canonical fingerprint of
// the request parameters. Reads are cheap RWMutex lookups; the whole cache
// is purged wholesale when the inventory mutates.
package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type entry struct {
	value      interface{}
	expiration int64
}

// Cache is a thread-safe TTL cache. A janitor goroutine sweeps expired
// entries so abandoned fingerprints do not accumulate.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*entry
	stop   chan struct{}
	logger *logrus.Logger
	now    func() time.Time

	hits   int64
	misses int64
	purges int64
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Purges    int64 `json:"purges"`
	ItemCount int   `json:"item_count"`
}

// New creates a cache whose janitor sweeps at the given interval.
func New(cleanupInterval time.Duration, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Cache{
		items:  make(map[string]*entry),
		stop:   make(chan struct{}),
		logger: logger,
		now:    time.Now,
	}
	go c.janitor(cleanupInterval)
	return c
}

// Set stores a value under key with the given TTL. Concurrent writes for the
// same fingerprint carry identical payloads, so last-write-wins is harmless.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &entry{
		value:      value,
		expiration: c.now().Add(ttl).UnixNano(),
	}
}

// Get retrieves a live value from the cache.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || c.now().UnixNano() > item.expiration {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return item.value, true
}

// PurgeAll drops every entry. Invoked on any inventory-mutation signal; a
// stale comparable set during an import window is a correctness nicety, so
// wholesale purging beats per-entry invalidation bookkeeping.
func (c *Cache) PurgeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.purges++
	c.logger.Debug("Result cache purged")
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Purges:    c.purges,
		ItemCount: len(c.items),
	}
}

// Close stops the janitor and drops all entries.
func (c *Cache) Close() {
	close(c.stop)
	c.PurgeAll()
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flushExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) flushExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	for key, item := range c.items {
		if now > item.expiration {
			delete(c.items, key)
		}
	}
}
