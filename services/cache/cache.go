package cache

import (
	"time"
)

// CacheService backs the crawl block cooldown. Keys expire on their
// own; a Get miss is reported as an error by the implementation.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
