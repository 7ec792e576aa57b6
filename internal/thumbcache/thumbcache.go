// Package thumbcache remembers thumbnail URLs by file name so contribution
// lists do not hit the remote API for every row they render.
package thumbcache

import (
	"fmt"
	"strings"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/pkordes/commons-depicts/backend/internal/domain"
)

// DefaultCapacity is used when the configured size is not set.
const DefaultCapacity = 100

// Cache is a bounded least-recently-used map from file name to thumbnail URL.
// It is safe for concurrent use. When full, Put evicts the entry that was
// least recently read or written.
type Cache struct {
	lru cache.Cache[string, string]
}

// New returns an empty cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("thumbcache.New: %w: capacity must be positive, got %d", domain.ErrValidation, capacity)
	}
	return &Cache{
		lru: cache.NewCache[string, string]().WithMaxKeys(capacity).WithLRU(),
	}, nil
}

// Get returns the URL cached for key and marks it as recently used.
func (c *Cache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

// Put caches url under key. Blank URLs are ignored so a failed lookup is
// retried next time instead of being remembered.
func (c *Cache) Put(key, url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	c.lru.Add(key, url)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
