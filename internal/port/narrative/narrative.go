// Package narrative defines the port for the external text generator that
// writes the prose part of an explanation.
package narrative

import "context"

// Request is a single narrative generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces free text for a request. Implementations must honor
// ctx cancellation; callers treat any error as "no narrative".
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
