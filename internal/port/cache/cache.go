// Package cache defines the port interface for caching serialized
// assessment views.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EmailKey returns the cache key under which the detail view of an email
// is stored. NATS KV keys may not contain spaces or wildcards, so the key
// uses only dots and the identifier.
func EmailKey(id string) string {
	return "email." + id
}
