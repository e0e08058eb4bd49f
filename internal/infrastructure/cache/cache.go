package cache

import (
	"sync"
	"time"

	"github.com/tentens-tech/shared-debrid/internal/infrastructure/metrics"
)

type Cache struct {
	mu      sync.RWMutex
	items   map[string]*CacheItem
	maxSize int
	stop    chan struct{}
	once    sync.Once
}

type CacheItem struct {
	Value      interface{}
	Expiration time.Time
}

// ConditionalRecord is what the gist client keeps between reads: the body of
// the last 200 response and the ETag it came with.
type ConditionalRecord struct {
	ETag string
	Body []byte
}

func New(maxSize int) *Cache {
	cache := &Cache{
		items:   make(map[string]*CacheItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 {
		metrics.CacheOperations.WithLabelValues("set", "skipped").Inc()
		return
	}
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.items[key] = &CacheItem{
		Value:      value,
		Expiration: time.Now().Add(ttl),
	}

	metrics.CacheOperations.WithLabelValues("set", "success").Inc()
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return nil, false
	}

	if time.Now().After(item.Expiration) {
		c.Delete(key)
		metrics.CacheOperations.WithLabelValues("get", "expired").Inc()
		return nil, false
	}

	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return item.Value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.Expiration.Before(oldest) {
			oldestKey = key
			oldest = item.Expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
		metrics.CacheOperations.WithLabelValues("evict", "success").Inc()
	}
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep drops expired entries and publishes the resulting size.
func (c *Cache) sweep() {
	c.mu.Lock()
	now := time.Now()
	for key, item := range c.items {
		if now.After(item.Expiration) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(c.Len()))
}
