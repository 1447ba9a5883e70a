package observability

import (
	"testing"

	"github.com/agentmem/agentmem/internal/types"
)

func TestBuildAuditRecordCountsActions(t *testing.T) {
	decisions := []types.Decision{
		{Action: types.ActionAdd, TargetID: "m1", Confidence: 0.9, Reasoning: "new fact"},
		{Action: types.ActionAdd, TargetID: "m2", Confidence: 0.8, Reasoning: "another new fact"},
		{Action: types.ActionUpdate, TargetID: "m3", Confidence: 0.7, Reasoning: "refines m3"},
	}
	rec := BuildAuditRecord(decisions)
	if rec.ActionCounts[types.ActionAdd] != 2 {
		t.Fatalf("ActionAdd count = %d, want 2", rec.ActionCounts[types.ActionAdd])
	}
	if rec.ActionCounts[types.ActionUpdate] != 1 {
		t.Fatalf("ActionUpdate count = %d, want 1", rec.ActionCounts[types.ActionUpdate])
	}
	if len(rec.Decisions) != 3 {
		t.Fatalf("len(Decisions) = %d, want 3", len(rec.Decisions))
	}
}

func TestBuildAuditRecordHashesReasoningNotVerbatim(t *testing.T) {
	rec := BuildAuditRecord([]types.Decision{{Action: types.ActionAdd, Reasoning: "secret reasoning text"}})
	if rec.Decisions[0].ReasoningHash == "secret reasoning text" {
		t.Fatal("reasoning leaked verbatim into the audit record")
	}
	if len(rec.Decisions[0].ReasoningHash) != 64 {
		t.Fatalf("ReasoningHash length = %d, want 64 (sha256 hex)", len(rec.Decisions[0].ReasoningHash))
	}
}

func TestBuildAuditRecordIsDeterministic(t *testing.T) {
	d := []types.Decision{{Action: types.ActionAdd, Reasoning: "same input"}}
	a := BuildAuditRecord(d)
	b := BuildAuditRecord(d)
	if a.Decisions[0].ReasoningHash != b.Decisions[0].ReasoningHash {
		t.Fatal("hashing the same reasoning twice produced different hashes")
	}
}
