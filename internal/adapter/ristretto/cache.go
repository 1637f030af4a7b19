// Package ristretto implements the cache port with dgraph-io/ristretto as
// the in-process L1 for email detail views.
package ristretto

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrDropped is returned when ristretto refuses to admit an entry.
var ErrDropped = errors.New("ristretto: entry rejected by admission policy")

// avgEntryBytes estimates the size of one serialized email detail.
const avgEntryBytes = 4 << 10

// Cache wraps a ristretto cache as an in-process L1 cache.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a cache holding at most maxMB megabytes of values.
func New(maxMB int) (*Cache, error) {
	if maxMB <= 0 {
		maxMB = 64
	}
	maxCost := int64(maxMB) << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / avgEntryBytes * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value with the given TTL. The write is flushed before
// returning so that a following Get observes it.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		return ErrDropped
	}
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// HitRatio reports the share of lookups served from memory.
func (c *Cache) HitRatio() float64 {
	return c.c.Metrics.Ratio()
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
