// Package cachetest provides a compliance suite shared by all cache adapters.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/cache"
)

// RunComplianceTests runs the standard compliance test suite against any Cache implementation.
func RunComplianceTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		key := cache.EmailKey("compliance")
		if err := c.Set(ctx, key, []byte(`{"risk_level":"HIGH"}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"risk_level":"HIGH"}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, cache.EmailKey("missing"))
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		key := cache.EmailKey("deleted")
		_ = c.Set(ctx, key, []byte("v"), time.Minute)
		if err := c.Delete(ctx, key); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, cache.EmailKey("never-existed")); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := cache.EmailKey("overwritten")
		_ = c.Set(ctx, key, []byte("v1"), time.Minute)
		_ = c.Set(ctx, key, []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}
