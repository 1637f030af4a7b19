// Package resilience guards calls to the narrative backends so that an
// unavailable LLM degrades to the deterministic narrative without delay.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker opens after maxFailures consecutive failures and rejects calls
// until timeout has passed. It then lets a single probe through; the probe
// decides whether the circuit closes or opens again.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	probing     bool
	onChange    func(from, to State)
	now         func() time.Time // for testing
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// OnStateChange registers fn to be called on every transition. fn runs
// with the breaker lock held and must not call back into the breaker.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the circuit is open or a half-open probe is
// already in flight, in which case ErrCircuitOpen is returned.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.transition(StateClosed)
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
