package reconcile

import "testing"

func TestReconcileNoConflictKeepsEveryDecision(t *testing.T) {
	in := []Input{
		{TargetID: "", Action: "ADD", Priority: 2, Confidence: 0.9},
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.9},
	}
	survivors, dropped := Reconcile(in)
	if len(survivors) != 2 || len(dropped) != 0 {
		t.Fatalf("survivors=%v dropped=%v, want all 2 survive", survivors, dropped)
	}
}

func TestReconcileHigherConfidenceWins(t *testing.T) {
	in := []Input{
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.6},
		{TargetID: "m1", Action: "DELETE", Priority: 3, Confidence: 0.9},
	}
	survivors, dropped := Reconcile(in)
	if len(survivors) != 1 || survivors[0] != 1 {
		t.Fatalf("survivors=%v, want [1] (higher confidence DELETE)", survivors)
	}
	if len(dropped) != 1 || dropped[0].Index != 0 || dropped[0].WonByIndex != 1 {
		t.Fatalf("dropped=%+v", dropped)
	}
}

func TestReconcileTieBreaksByActionPriority(t *testing.T) {
	in := []Input{
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.8},
		{TargetID: "m1", Action: "MERGE", Priority: 5, Confidence: 0.8},
		{TargetID: "m1", Action: "DELETE", Priority: 3, Confidence: 0.8},
	}
	survivors, dropped := Reconcile(in)
	if len(survivors) != 1 || survivors[0] != 1 {
		t.Fatalf("survivors=%v, want [1] (MERGE has highest priority)", survivors)
	}
	if len(dropped) != 2 {
		t.Fatalf("dropped=%+v, want 2 entries", dropped)
	}
}

func TestReconcileSameActionOnSameTargetStillConflicts(t *testing.T) {
	in := []Input{
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.8},
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.7},
	}
	survivors, dropped := Reconcile(in)
	if len(survivors) != 1 || survivors[0] != 0 {
		t.Fatalf("two UPDATEs on the same target share a target and must resolve to one survivor: survivors=%v dropped=%v", survivors, dropped)
	}
	if len(dropped) != 1 || dropped[0].Index != 1 || dropped[0].WonByIndex != 0 {
		t.Fatalf("dropped=%+v, want index 1 dropped in favour of higher-confidence index 0", dropped)
	}
}

func TestReconcileIsDeterministicAcrossRuns(t *testing.T) {
	in := []Input{
		{TargetID: "m2", Action: "DELETE", Priority: 3, Confidence: 0.5},
		{TargetID: "m2", Action: "MERGE", Priority: 5, Confidence: 0.5},
		{TargetID: "m1", Action: "UPDATE", Priority: 4, Confidence: 0.9},
		{TargetID: "m1", Action: "DELETE", Priority: 3, Confidence: 0.9},
	}
	s1, d1 := Reconcile(in)
	s2, d2 := Reconcile(in)
	if len(s1) != len(s2) || len(d1) != len(d2) {
		t.Fatal("Reconcile produced different shapes across repeated runs on identical input")
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("survivors differ across runs: %v vs %v", s1, s2)
		}
	}
}
