// Package describer defines the ContentDescriber capability contract
// (spec §4 external interfaces) used by the add_image/add_audio/add_video
// façade to turn opaque bytes into searchable text.
package describer

import (
	"context"

	"github.com/agentmem/agentmem/internal/apperr"
)

// ContentDescriber turns non-text content into a textual description
// suitable for the same extraction/embedding pipeline as ordinary text
// memories. Implementations are expected to call out to a multimodal
// model; AgentMem's core defines and invokes the contract but ships no
// production decoder of its own.
type ContentDescriber interface {
	// Describe returns a textual description of data, interpreted
	// according to mime (e.g. "image/png", "audio/wav", "video/mp4").
	Describe(ctx context.Context, data []byte, mime string) (string, error)
}

// Unsupported implements ContentDescriber by always reporting an
// apperr.Capability failure. It is the zero-value fallback a
// DeploymentAssembly wires in when no multimodal provider is configured,
// so add_image/add_audio/add_video fail loudly instead of silently
// storing undescribed bytes.
type Unsupported struct{}

func (Unsupported) Describe(ctx context.Context, data []byte, mime string) (string, error) {
	return "", apperr.Capabilityf("describer.describe", "no ContentDescriber configured for mime type %q", mime)
}
