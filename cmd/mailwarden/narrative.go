package main

import (
	"context"
	"log/slog"

	"github.com/Strob0t/MailWarden/internal/adapter/anthropic"
	mwhttp "github.com/Strob0t/MailWarden/internal/adapter/http"
	"github.com/Strob0t/MailWarden/internal/adapter/litellm"
	"github.com/Strob0t/MailWarden/internal/config"
	"github.com/Strob0t/MailWarden/internal/port/narrative"
	"github.com/Strob0t/MailWarden/internal/resilience"
)

// newNarrative selects the narrative backend. Every backend sits behind a
// circuit breaker; "none" yields a nil generator and the explainer always
// writes the deterministic narrative.
func newNarrative(cfg *config.Config, log *slog.Logger) (narrative.Generator, mwhttp.HealthCheck) {
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	breaker.OnStateChange(func(from, to resilience.State) {
		log.Warn("narrative circuit breaker", "from", from, "to", to, "provider", cfg.Narrative.Provider)
	})

	switch cfg.Narrative.Provider {
	case config.ProviderLiteLLM:
		client := litellm.NewClient(cfg.Narrative.URL, cfg.Narrative.APIKey)
		client.SetBreaker(breaker)
		check := func(ctx context.Context) error {
			_, err := client.Health(ctx)
			return err
		}
		return litellm.NewGenerator(client, cfg.Narrative.Model), check

	case config.ProviderAnthropic:
		gen := anthropic.NewGenerator(anthropic.Config{
			APIKey:  cfg.Narrative.APIKey,
			Model:   cfg.Narrative.Model,
			BaseURL: cfg.Narrative.URL,
		})
		gen.SetBreaker(breaker)
		return gen, breakerCheck(breaker)

	default:
		log.Info("narrative generation disabled")
		return nil, nil
	}
}

// breakerCheck reports the provider unhealthy while its breaker is open.
func breakerCheck(b *resilience.Breaker) mwhttp.HealthCheck {
	return func(context.Context) error {
		if b.State() == resilience.StateOpen {
			return resilience.ErrCircuitOpen
		}
		return nil
	}
}
