// Package observability holds the spans, metrics, and structured decision
// audit log spec §4.10 names, grounded on the teacher's
// go.opentelemetry.io/otel stack and internal/eventbus/bus.go's
// dispatch-to-handlers shape (repurposed here as audit-record fan-out
// rather than Claude Code hook events).
package observability

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/agentmem/agentmem/internal/types"
)

// DecisionSummary is the per-decision audit line spec §4.10 requires:
// "{action, target, confidence, reasoning_hash}". Reasoning is hashed
// rather than stored verbatim so the audit log stays a fixed-size summary
// even when DecisionEngine reasoning strings are long LLM output.
type DecisionSummary struct {
	Action        types.DecisionAction
	Target        string
	Confidence    float64
	ReasoningHash string
}

// AuditRecord summarises one DecisionEngine batch (spec §4.10: "a
// structured audit log per batch summarising action counts and
// per-decision summaries").
type AuditRecord struct {
	ActionCounts map[types.DecisionAction]int
	Decisions    []DecisionSummary
}

// BuildAuditRecord converts a batch of surviving decisions into an
// AuditRecord. Call this after ConflictReconciler has dropped losers, so
// the audit log reflects what was actually committed.
func BuildAuditRecord(decisions []types.Decision) *AuditRecord {
	rec := &AuditRecord{ActionCounts: make(map[types.DecisionAction]int)}
	for _, d := range decisions {
		rec.ActionCounts[d.Action]++
		rec.Decisions = append(rec.Decisions, DecisionSummary{
			Action:        d.Action,
			Target:        d.TargetID,
			Confidence:    d.Confidence,
			ReasoningHash: reasoningHash(d.Reasoning),
		})
	}
	return rec
}

func reasoningHash(reasoning string) string {
	sum := sha256.Sum256([]byte(reasoning))
	return hex.EncodeToString(sum[:])
}
