package vectorindex

import "testing"

func TestTuningForBuckets(t *testing.T) {
	cases := []struct {
		count     int64
		dimension int
		wantM     int
	}{
		{500, 1536, 16},
		{500, 256, 32},
		{50_000, 1536, 16},
		{5_000_000, 1536, 16},
	}
	for _, c := range cases {
		got := TuningFor(c.count, c.dimension)
		if got.M != c.wantM {
			t.Errorf("TuningFor(%d, %d).M = %d, want %d", c.count, c.dimension, got.M, c.wantM)
		}
	}
}

func TestTuningForEfConstructionGrowsWithScale(t *testing.T) {
	small := TuningFor(5_000, 1536)
	large := TuningFor(2_000_000, 1536)
	if large.EfConstruction <= small.EfConstruction {
		t.Errorf("expected ef_construction to grow with scale, got small=%d large=%d", small.EfConstruction, large.EfConstruction)
	}
}

func TestGrowEfSearchOnlyBelowTarget(t *testing.T) {
	if got := GrowEfSearch(100, 0.99); got != 100 {
		t.Errorf("recall above target must not grow ef_search, got %d", got)
	}
	got := GrowEfSearch(100, 0.5)
	if got <= 100 {
		t.Errorf("recall below target must grow ef_search, got %d", got)
	}
}

func TestGrowEfSearchCapsAtCeiling(t *testing.T) {
	got := GrowEfSearch(450, 0.1)
	if got > efSearchCeiling {
		t.Errorf("ef_search must not exceed ceiling %d, got %d", efSearchCeiling, got)
	}
}
