package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteOptions carries the optional per-route middleware.
type RouteOptions struct {
	// AnalyzeLimit throttles the analyze route, e.g. a per-IP rate limiter.
	AnalyzeLimit func(http.Handler) http.Handler
	// Idempotency deduplicates analyze submissions by Idempotency-Key.
	Idempotency func(http.Handler) http.Handler
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.Info)

		// Coordination
		analyze := r.With()
		if opts.AnalyzeLimit != nil {
			analyze = analyze.With(opts.AnalyzeLimit)
		}
		if opts.Idempotency != nil {
			analyze = analyze.With(opts.Idempotency)
		}
		analyze.Post("/coordination/analyze", h.Analyze)

		// Emails
		r.Get("/emails", h.ListEmails)
		r.Get("/emails/{id}", h.GetEmail)
	})
}
