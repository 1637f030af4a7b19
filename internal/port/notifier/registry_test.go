package notifier

import (
	"context"
	"slices"
	"testing"
)

type stubNotifier struct{ name string }

func (s stubNotifier) Name() string                                 { return s.name }
func (s stubNotifier) Capabilities() Capabilities                   { return Capabilities{} }
func (s stubNotifier) Send(_ context.Context, _ Notification) error { return nil }

func TestRegistry(t *testing.T) {
	Register("test-stub", func(cfg map[string]string) (Notifier, error) {
		return stubNotifier{name: cfg["name"]}, nil
	})

	n, err := New("test-stub", map[string]string{"name": "stub"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Name() != "stub" {
		t.Errorf("name = %q, want stub", n.Name())
	}
	if !slices.Contains(Available(), "test-stub") {
		t.Errorf("Available() = %v, missing test-stub", Available())
	}
	if _, err := New("does-not-exist", nil); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("test-dup", func(map[string]string) (Notifier, error) { return stubNotifier{}, nil })
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("test-dup", func(map[string]string) (Notifier, error) { return stubNotifier{}, nil })
}
