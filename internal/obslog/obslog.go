// Package obslog wraps log/slog with the attribute set spec §4.10 names
// for every pipeline stage ({user_id, agent_id, memory_id?, decision,
// confidence, latency_ms}), grounded on the teacher's pervasive direct
// log/slog usage across cmd/bd rather than a third-party logging library.
package obslog

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New builds a JSON slog.Logger writing to w at level, the same handler
// shape the teacher's cmd/bd entry points construct.
func New(w *os.File, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// StageAttrs builds the spec §4.10 attribute set for a single pipeline
// stage span/log line. memoryID may be empty when a stage has not yet
// resolved a target memory (e.g. the extraction stage, before a fact has
// been matched to one).
func StageAttrs(userID, agentID, memoryID, decision string, confidence float64, latency time.Duration) []any {
	attrs := []any{
		slog.String("user_id", userID),
		slog.String("agent_id", agentID),
		slog.String("decision", decision),
		slog.Float64("confidence", confidence),
		slog.Int64("latency_ms", latency.Milliseconds()),
	}
	if memoryID != "" {
		attrs = append(attrs, slog.String("memory_id", memoryID))
	}
	return attrs
}

// Stage logs one pipeline-stage completion at Info level with the spec
// §4.10 attributes. Callers on a degraded path (fallback extraction,
// lexical-only search) should still call Stage; degradation is a decision
// detail, not a missing span.
func Stage(ctx context.Context, logger *slog.Logger, stage, userID, agentID, memoryID, decision string, confidence float64, latency time.Duration) {
	attrs := append([]any{slog.String("stage", stage)}, StageAttrs(userID, agentID, memoryID, decision, confidence, latency)...)
	logger.InfoContext(ctx, "pipeline_stage", attrs...)
}
