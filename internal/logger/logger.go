// Package logger provides structured logging setup for MailWarden.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/MailWarden/internal/config"
)

const (
	asyncBufferSize = 4096
	asyncWorkers    = 2
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record and
// the request ID of the record's context when one is set. The returned
// Closer flushes the async handler; it is a no-op in synchronous mode.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		async := NewAsyncHandler(handler, asyncBufferSize, asyncWorkers)
		handler, closer = async, async
	}
	// Outermost, so the request ID is read before async workers drop the context.
	handler = &requestIDHandler{inner: handler}

	return slog.New(handler).With("service", cfg.Service), closer
}

// requestIDHandler stamps records with the request ID found in their context.
type requestIDHandler struct {
	inner slog.Handler
}

func (h *requestIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *requestIDHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, rec)
}

func (h *requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &requestIDHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *requestIDHandler) WithGroup(name string) slog.Handler {
	return &requestIDHandler{inner: h.inner.WithGroup(name)}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
