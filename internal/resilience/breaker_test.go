package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("llm unavailable")

func tripped(t *testing.T, maxFailures int) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Now()
	b := NewBreaker(maxFailures, time.Second)
	b.now = func() time.Time { return now }
	for i := 0; i < maxFailures; i++ {
		_ = b.Execute(func() error { return errTest })
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open after %d failures, got %s", maxFailures, b.State())
	}
	return b, &now
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b, _ := tripped(t, 3)
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(2, time.Second)
	_ = b.Execute(func() error { return errTest })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errTest })
	if b.State() != StateClosed {
		t.Fatalf("non-consecutive failures must not open the circuit, got %s", b.State())
	}
}

func TestHalfOpenProbeCloses(t *testing.T) {
	b, now := tripped(t, 2)

	*now = now.Add(2 * time.Second)
	called := false
	if err := b.Execute(func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if !called {
		t.Fatal("expected probe to run")
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := tripped(t, 2)

	*now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return errTest })
	if b.State() != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestHalfOpenAllowsSingleProbe(t *testing.T) {
	b, now := tripped(t, 1)
	*now = now.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected concurrent call to be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestOnStateChange(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	var got []State
	b.OnStateChange(func(_, to State) { got = append(got, to) })

	_ = b.Execute(func() error { return errTest })
	now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}
