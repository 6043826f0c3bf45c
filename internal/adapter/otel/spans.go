package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "deskforge"

// StartStageSpan starts a span for one pipeline stage of a request.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, stage)
}

// StartExecutionSpan starts a span for an operation-plan execution.
func StartExecutionSpan(ctx context.Context, domain, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "execute",
		trace.WithAttributes(
			attribute.String("plan.domain", domain),
			attribute.String("plan.operation", operation),
		),
	)
}
