package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyBody   = 1 << 20 // 1 MB
	maxIdempotencyKey    = 200
)

// idempotencyEntry stores a cached HTTP response.
type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency returns middleware that deduplicates analyze submissions
// carrying an Idempotency-Key header. Successful responses are kept in c
// for ttl and replayed verbatim; errors are never cached so a client can
// retry them.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to mutating methods
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerIdempotencyKey)
			if key == "" || len(key) > maxIdempotencyKey {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := "idem." + key

			data, ok, err := c.Get(r.Context(), cacheKey)
			if err != nil {
				slog.WarnContext(r.Context(), "idempotency: cache lookup failed", "key", key, "error", err)
			}
			if ok {
				var cached idempotencyEntry
				if err := json.Unmarshal(data, &cached); err == nil {
					for k, vals := range cached.Headers {
						for _, v := range vals {
							w.Header().Add(k, v)
						}
					}
					w.Header().Set(headerReplayed, "true")
					w.WriteHeader(cached.StatusCode)
					_, _ = w.Write(cached.Body)
					return
				}
				slog.WarnContext(r.Context(), "idempotency: corrupt cache entry", "key", key)
			}

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 300 || rec.body.Len() > maxIdempotencyBody {
				return
			}
			headers := w.Header().Clone()
			delete(headers, headerRequestID)
			entry, err := json.Marshal(idempotencyEntry{
				StatusCode: rec.statusCode,
				Headers:    headers,
				Body:       rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := c.Set(r.Context(), cacheKey, entry, ttl); err != nil {
				slog.WarnContext(r.Context(), "idempotency: failed to store response", "key", key, "error", err)
			}
		})
	}
}

// responseRecorder wraps http.ResponseWriter to capture the response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
