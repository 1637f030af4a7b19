// Package anthropic generates explanation narratives with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Strob0t/MailWarden/internal/port/narrative"
	"github.com/Strob0t/MailWarden/internal/resilience"
)

// ErrEmptyResponse is returned when the response carries no text block.
var ErrEmptyResponse = errors.New("anthropic response has no text content")

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-3-5-haiku-latest"

// Config selects the model and endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Generator implements narrative.Generator on top of the Anthropic SDK.
type Generator struct {
	client  anthropic.Client
	model   string
	breaker *resilience.Breaker
}

// NewGenerator creates a Generator. Retries are disabled: a failed call
// falls back to the deterministic narrative instead.
func NewGenerator(cfg Config) *Generator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (g *Generator) SetBreaker(b *resilience.Breaker) {
	g.breaker = b
}

// Generate implements narrative.Generator.
func (g *Generator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	var text string
	call := func() error {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(g.model),
			MaxTokens:   int64(req.MaxTokens),
			Temperature: anthropic.Float(req.Temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}

		message, err := g.client.Messages.New(ctx, params)
		if err != nil {
			return fmt.Errorf("anthropic messages: %w", err)
		}
		var b strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return ErrEmptyResponse
		}
		text = b.String()
		return nil
	}

	if g.breaker != nil {
		if err := g.breaker.Execute(call); err != nil {
			return "", err
		}
		return text, nil
	}
	if err := call(); err != nil {
		return "", err
	}
	return text, nil
}
