package hybridsearch

import "testing"

func TestDynamicThresholdBase(t *testing.T) {
	if got := DynamicThreshold("quick brown fox"); got != baseThreshold {
		t.Fatalf("DynamicThreshold = %v, want base %v", got, baseThreshold)
	}
}

func TestDynamicThresholdSingleTokenRaises(t *testing.T) {
	if got := DynamicThreshold("fox"); got != baseThreshold+thresholdStep {
		t.Fatalf("DynamicThreshold = %v, want %v", got, baseThreshold+thresholdStep)
	}
}

func TestDynamicThresholdSpecialCharsRaises(t *testing.T) {
	got := DynamicThreshold("path/to/file and more words")
	if got != baseThreshold+thresholdStep {
		t.Fatalf("DynamicThreshold = %v, want %v", got, baseThreshold+thresholdStep)
	}
}

func TestDynamicThresholdLongQueryLowers(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	got := DynamicThreshold(long)
	if got != baseThreshold-thresholdStep {
		t.Fatalf("DynamicThreshold(long) = %v, want %v", got, baseThreshold-thresholdStep)
	}
}

func TestDynamicThresholdClampsToRange(t *testing.T) {
	if got := DynamicThreshold("a/b"); got > maxThreshold || got < minThreshold {
		t.Fatalf("DynamicThreshold = %v, out of [%v,%v]", got, minThreshold, maxThreshold)
	}
}
