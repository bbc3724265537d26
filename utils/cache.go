package utils

import (
	"sync"
	"time"
)

// TagCache is a small in-process response cache keyed by endpoint and
// grouped by invalidation tags, the server-side counterpart of the
// frontend's tag-based revalidation. Entries expire after the TTL even
// if nobody invalidates them.
type TagCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	tags      []string
	expiresAt time.Time
}

func NewTagCache(ttl time.Duration) *TagCache {
	return &TagCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *TagCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *TagCache) Set(key string, value interface{}, tags ...string) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     value,
		tags:      tags,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops every entry carrying the tag and returns how many
// were removed.
func (c *TagCache) Invalidate(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		for _, t := range e.tags {
			if t == tag {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}
