package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/MailWarden/internal/adapter/anthropic"
	"github.com/Strob0t/MailWarden/internal/port/narrative"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "sk-test" {
			t.Fatalf("unexpected api key: %q", key)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["model"] != "claude-haiku" || body["max_tokens"] != float64(500) {
			t.Fatalf("unexpected body: %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku",
			"content": [{"type": "text", "text": "Threat intelligence matched the link."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 100, "output_tokens": 12}
		}`))
	}))
	defer srv.Close()

	gen := anthropic.NewGenerator(anthropic.Config{APIKey: "sk-test", Model: "claude-haiku", BaseURL: srv.URL})
	text, err := gen.Generate(context.Background(), narrative.Request{
		System:      "system",
		Prompt:      "prompt",
		MaxTokens:   500,
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Threat intelligence matched the link." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_02","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	gen := anthropic.NewGenerator(anthropic.Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := gen.Generate(context.Background(), narrative.Request{Prompt: "p", MaxTokens: 10})
	if !errors.Is(err, anthropic.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	gen := anthropic.NewGenerator(anthropic.Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := gen.Generate(context.Background(), narrative.Request{Prompt: "p", MaxTokens: 10}); err == nil {
		t.Fatal("expected error")
	}
}
