package hybridsearch

import "testing"

func TestNormalizeQueryTrimsLowercasesCollapses(t *testing.T) {
	got := NormalizeQuery("  The   Quick Fox  ")
	if got != "quick fox" {
		t.Fatalf("NormalizeQuery = %q", got)
	}
}

func TestNormalizeQueryAllStopWordsRevertsToRaw(t *testing.T) {
	got := NormalizeQuery("the a an")
	if got != "the a an" {
		t.Fatalf("NormalizeQuery = %q, want raw fallback when stop-word removal empties the query", got)
	}
}

func TestNormalizeQueryEmptyStaysEmpty(t *testing.T) {
	if got := NormalizeQuery("   "); got != "" {
		t.Fatalf("NormalizeQuery(whitespace) = %q, want empty", got)
	}
}
