package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 10 requests should succeed (burst = 10)
	for i := range 10 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.168.1.1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the burst (5 tokens)
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.168.1.1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	// Next request should be rate limited
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "192.168.1.1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterSetsHeaders(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "192.168.1.1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected X-RateLimit-Reset header")
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust tokens for IP 1
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "10.0.0.1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	// IP 1 should be rate limited
	req1 := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req1.RemoteAddr = "10.0.0.1"
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusTooManyRequests {
		t.Errorf("IP 10.0.0.1: expected 429, got %d", rec1.Code)
	}

	// IP 2 should still be allowed
	req2 := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req2.RemoteAddr = "10.0.0.2"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("IP 10.0.0.2: expected 200, got %d", rec2.Code)
	}
}

// fakeClock lets tests move time forward deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterRefills(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(2, 1)
	rl.now = clock.now

	if _, _, ok := rl.allow("1.2.3.4"); !ok {
		t.Fatal("first request should pass")
	}
	_, retry, ok := rl.allow("1.2.3.4")
	if ok {
		t.Fatal("second request should be limited")
	}
	if retry != 0.5 {
		t.Errorf("retryAfter = %v, want 0.5", retry)
	}

	clock.advance(500 * time.Millisecond)
	if _, _, ok := rl.allow("1.2.3.4"); !ok {
		t.Fatal("request after refill should pass")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(10, 10)
	rl.now = clock.now

	rl.allow("10.0.0.1")
	clock.advance(time.Minute)
	rl.allow("10.0.0.2")

	rl.cleanup(30 * time.Second)
	if rl.Len() != 1 {
		t.Fatalf("expected 1 bucket after cleanup, got %d", rl.Len())
	}
}

func TestRateLimiterCapacity(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	rl.maxBuckets = 1

	if _, _, ok := rl.allow("10.0.0.1"); !ok {
		t.Fatal("first ip should pass")
	}
	if _, _, ok := rl.allow("10.0.0.2"); ok {
		t.Fatal("new ip beyond capacity should be rejected")
	}
}
