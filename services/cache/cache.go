package cache

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// memoryCleanupInterval is how often expired entries are purged
const memoryCleanupInterval = time.Minute

// MemoryCache is a process-local CacheService used when no memcache server is configured
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

// Get retrieves a value unless it has expired
func (m *MemoryCache) Get(key string) ([]byte, error) {
	value, ok := m.items.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value.([]byte), nil
}

// Set stores a value. A non-positive expiration never expires.
func (m *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	m.items.Set(key, value, expiration)
	return nil
}

// Delete removes a value
func (m *MemoryCache) Delete(key string) error {
	m.items.Delete(key)
	return nil
}
