// Package ws pushes assessment events to dashboard clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	conns   map[*conn]struct{}
	origins []string
	log     *slog.Logger
}

// NewHub creates a new WebSocket hub. allowedOrigins is a comma separated
// list of origin host patterns; empty or "*" accepts any origin.
func NewHub(allowedOrigins string, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns:   make(map[*conn]struct{}),
		origins: originPatterns(allowedOrigins),
		log:     log,
	}
}

// HandleWS upgrades the request and blocks until the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: h.origins}
	if len(h.origins) == 0 {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.log.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info("websocket connected", "remote", r.RemoteAddr)

	defer func() {
		h.remove(c)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()
	// Clients only listen; reading detects disconnects and consumes pings.
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.log.Debug("websocket write failed", "error", err)
			h.remove(c)
		}
	}
}

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.cancel()
		if c.ws != nil {
			_ = c.ws.CloseNow()
		}
		delete(h.conns, c)
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		h.log.Info("websocket disconnected")
	}
}

func originPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "*" {
			return nil
		}
		if p == "" {
			continue
		}
		// OriginPatterns match hosts, not full origins.
		p = strings.TrimPrefix(strings.TrimPrefix(p, "https://"), "http://")
		out = append(out, p)
	}
	return out
}
