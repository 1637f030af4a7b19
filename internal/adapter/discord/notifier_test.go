package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/MailWarden/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestNotifierName(t *testing.T) {
	if n := NewNotifier("", ""); n.Name() != "discord" {
		t.Fatalf("expected 'discord', got %q", n.Name())
	}
}

func TestSendNotConfigured(t *testing.T) {
	err := NewNotifier("", "").Send(context.Background(), notifier.Notification{Title: "test"})
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendSuccess(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "MailWarden")
	err := n.Send(context.Background(), notifier.Notification{
		Title:   "Phishing risk 0.82",
		Message: strings.Repeat("y", maxDescriptionLen+10),
		Level:   notifier.LevelWarning,
		Source:  "assessment.completed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username != "MailWarden" || len(got.Embeds) != 1 {
		t.Fatalf("payload = %+v", got)
	}
	e := got.Embeds[0]
	if e.Color != 0xF39C12 {
		t.Errorf("color = %#x", e.Color)
	}
	if len(e.Description) != maxDescriptionLen {
		t.Errorf("description length = %d", len(e.Description))
	}
	if e.Footer == nil || e.Footer.Text != "Source: assessment.completed" {
		t.Errorf("footer = %+v", e.Footer)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL, "").Send(context.Background(), notifier.Notification{Title: "Test"})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}
