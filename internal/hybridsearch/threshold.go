package hybridsearch

import (
	"math"
	"strings"
)

const (
	baseThreshold = 0.7
	minThreshold  = 0.5
	maxThreshold  = 0.9
	thresholdStep = 0.05
	longQueryLen  = 100
)

// specialChars is the configured set of characters that, if present,
// raise the dynamic threshold (spec §4.8 phase 2) — symbols that
// typically indicate a precise, structured query (code, paths, ids)
// rather than loose natural language.
const specialChars = "{}[]()<>\"'`~@#$%^&*+=|\\/"

// DynamicThreshold computes the similarity threshold for query per spec
// §4.8 phase 2: start from a base, raise for single-token or
// special-character queries, lower for long queries, then clamp.
func DynamicThreshold(query string) float64 {
	t := baseThreshold
	tokenCount := len(strings.Fields(query))
	if tokenCount == 1 {
		t += thresholdStep
	}
	if strings.ContainsAny(query, specialChars) {
		t += thresholdStep
	}
	if len([]rune(query)) > longQueryLen {
		t -= thresholdStep
	}
	// Snap to two decimals so stepped values land exactly on the 0.05
	// grid (0.7-0.05 in float64 is otherwise 0.6499999999999999).
	t = math.Round(t*100) / 100
	if t < minThreshold {
		t = minThreshold
	}
	if t > maxThreshold {
		t = maxThreshold
	}
	return t
}
