package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mailwarden"

// StartCoordinationSpan starts a span for one coordination pass.
func StartCoordinationSpan(ctx context.Context, requestID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "coordination",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
}

// StartNarrativeSpan starts a span for a narrative generation call.
func StartNarrativeSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "narrative",
		trace.WithAttributes(attribute.String("narrative.provider", provider)),
	)
}

// StartPersistSpan starts a span for storing an analysis.
func StartPersistSpan(ctx context.Context, emailUID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "persist",
		trace.WithAttributes(attribute.String("email.uid", emailUID)),
	)
}
