package tiered_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Strob0t/MailWarden/internal/adapter/tiered"
	"github.com/Strob0t/MailWarden/internal/port/cache/cachetest"
)

// memCache is a simple in-memory cache for testing.
type memCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCompliance(t *testing.T) {
	cachetest.RunComplianceTests(t, tiered.New(newMemCache(), newMemCache(), time.Minute, quiet))
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute, quiet)

	l2.data["email.1"] = []byte(`{"risk_level":"LOW"}`)

	val, found, err := c.Get(context.Background(), "email.1")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != `{"risk_level":"LOW"}` {
		t.Fatalf("expected L2 hit, got found=%v val=%s", found, val)
	}
	if _, ok := l1.data["email.1"]; !ok {
		t.Fatal("expected L1 backfill")
	}
	if l1.ttls["email.1"] != 5*time.Minute {
		t.Fatalf("backfill ttl = %v", l1.ttls["email.1"])
	}
}

func TestTiered_L2ErrorIsMiss(t *testing.T) {
	l2 := newMemCache()
	l2.err = errors.New("nats: no responders")
	c := tiered.New(newMemCache(), l2, time.Minute, quiet)

	_, found, err := c.Get(context.Background(), "email.2")
	if err != nil {
		t.Fatalf("expected L2 error to be swallowed, got %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestTiered_DeletePropagatesL2Error(t *testing.T) {
	l2 := newMemCache()
	l2.err = errors.New("nats: timeout")
	c := tiered.New(newMemCache(), l2, time.Minute, quiet)

	if err := c.Delete(context.Background(), "email.3"); err == nil {
		t.Fatal("expected delete error from L2")
	}
}

func TestTiered_SetCapsL1TTL(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, time.Minute, quiet)

	if err := c.Set(context.Background(), "email.4", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if l1.ttls["email.4"] != time.Minute {
		t.Fatalf("l1 ttl = %v, want 1m", l1.ttls["email.4"])
	}
	if l2.ttls["email.4"] != time.Hour {
		t.Fatalf("l2 ttl = %v, want 1h", l2.ttls["email.4"])
	}
}
