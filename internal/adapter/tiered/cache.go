// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/cache"
)

// Cache combines an in-process L1 with a shared remote L2. Get checks L1
// first, then L2, backfilling L1 on an L2 hit. Writes and deletes go to both.
//
// L2 errors on reads are logged and reported as misses, so an unreachable
// NATS server only costs a database round trip. Deletes must reach both
// levels, otherwise another replica could keep serving a stale verdict.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
	log      *slog.Logger
}

// New creates a tiered cache. l1Expire bounds how long backfilled entries
// live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire, log: log}
}

// Get checks L1, then L2.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		c.log.Warn("l2 cache get failed, treating as miss", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	if err := c.l1.Set(ctx, key, val, c.l1Expire); err != nil {
		c.log.Debug("l1 backfill skipped", "key", key, "error", err)
	}
	return val, true, nil
}

// Set writes to L1 and then L2. An L2 failure is returned after L1 has
// been updated.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if c.l1Expire > 0 && (l1TTL <= 0 || c.l1Expire < l1TTL) {
		l1TTL = c.l1Expire
	}
	if err := c.l1.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	return c.l2.Delete(ctx, key)
}
