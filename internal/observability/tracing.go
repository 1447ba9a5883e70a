package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/agentmem/agentmem/observability")

// StartStageSpan opens a span for one pipeline stage, carrying the spec
// §4.10 attribute set minus latency_ms (added by EndStageSpan once the
// stage completes).
func StartStageSpan(ctx context.Context, stage, userID, agentID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, stage, trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("agent_id", agentID),
	))
}

// EndStageSpan records the remaining spec §4.10 attributes
// (memory_id?, decision, confidence, latency_ms) and ends span.
func EndStageSpan(span trace.Span, memoryID, decision string, confidence float64, start time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("decision", decision),
		attribute.Float64("confidence", confidence),
		attribute.Int64("latency_ms", time.Since(start).Milliseconds()),
	}
	if memoryID != "" {
		attrs = append(attrs, attribute.String("memory_id", memoryID))
	}
	span.SetAttributes(attrs...)
	span.End()
}
