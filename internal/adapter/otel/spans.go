package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gatekeeper"

// StartTurnSpan starts a span for one handled turn.
func StartTurnSpan(ctx context.Context, tenantID, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("session.id", sessionID),
		),
	)
}

// StartToolSpan starts a span for one tool call within a turn.
func StartToolSpan(ctx context.Context, toolName, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.tool", toolName),
			attribute.String("toolcall.mode", mode),
		),
	)
}

// StartConfirmSpan starts a span for a proposal confirmation.
func StartConfirmSpan(ctx context.Context, proposalID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "confirm",
		trace.WithAttributes(
			attribute.String("proposal.id", proposalID),
		),
	)
}
