package describer

import (
	"context"
	"testing"

	"github.com/agentmem/agentmem/internal/apperr"
)

func TestUnsupportedReturnsCapabilityError(t *testing.T) {
	var d ContentDescriber = Unsupported{}
	_, err := d.Describe(context.Background(), []byte{1, 2, 3}, "image/png")
	if !apperr.Is(err, apperr.Capability) {
		t.Fatalf("Describe = %v, want Capability", err)
	}
}
