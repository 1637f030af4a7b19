package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

var timeNow = time.Now

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncQueue is shared by an AsyncHandler and every handler derived from
// it through WithAttrs and WithGroup.
type asyncQueue struct {
	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	ch      chan asyncRecord
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

type asyncRecord struct {
	inner slog.Handler
	rec   slog.Record
}

// AsyncHandler hands records to a pool of workers through a bounded
// buffer. When the buffer is full, records below WARN are dropped and
// counted. WARN and above wait for room, so verdict and delivery failures
// are never lost. After Close, records are written synchronously.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler creates an AsyncHandler with the given buffer size and worker count.
func NewAsyncHandler(inner slog.Handler, bufferSize, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan asyncRecord, bufferSize)}
	for range max(workers, 1) {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for r := range q.ch {
				_ = r.inner.Handle(context.Background(), r.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		return h.inner.Handle(ctx, rec)
	}

	r := asyncRecord{inner: h.inner, rec: rec}
	if rec.Level >= slog.LevelWarn {
		h.q.ch <- r
		return nil
	}
	select {
	case h.q.ch <- r:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close drains the buffer and stops the workers. A non-zero drop count is
// reported through the inner handler. Close is safe to call more than once.
func (h *AsyncHandler) Close() {
	h.q.once.Do(func() {
		h.q.mu.Lock()
		h.q.closed = true
		close(h.q.ch)
		h.q.mu.Unlock()
		h.q.wg.Wait()

		if n := h.q.dropped.Load(); n > 0 {
			rec := slog.NewRecord(timeNow(), slog.LevelWarn, "async logger dropped records", 0)
			rec.AddAttrs(slog.Int64("dropped", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}
