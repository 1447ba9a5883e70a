package orchestrator

import (
	"context"

	"github.com/agentmem/agentmem/internal/apperr"
)

// AddImage describes data as image/mime via Describer, then runs the
// resulting text through the ordinary Add pipeline (spec §6
// add_image/add_audio/add_video façade: "images/audio/video are accepted
// as opaque bytes... their descriptive text is produced by a pluggable
// ContentDescriber capability").
func (o *Orchestrator) AddImage(ctx context.Context, data []byte, mime string, opts AddOptions) (AddResult, error) {
	return o.addDescribed(ctx, data, mime, opts)
}

// AddAudio is AddImage's audio counterpart.
func (o *Orchestrator) AddAudio(ctx context.Context, data []byte, mime string, opts AddOptions) (AddResult, error) {
	return o.addDescribed(ctx, data, mime, opts)
}

// AddVideo is AddImage's video counterpart.
func (o *Orchestrator) AddVideo(ctx context.Context, data []byte, mime string, opts AddOptions) (AddResult, error) {
	return o.addDescribed(ctx, data, mime, opts)
}

func (o *Orchestrator) addDescribed(ctx context.Context, data []byte, mime string, opts AddOptions) (AddResult, error) {
	if o.Describer == nil {
		return AddResult{}, apperr.Capabilityf("orchestrator.add_described", "no ContentDescriber configured")
	}
	text, err := o.Describer.Describe(ctx, data, mime)
	if err != nil {
		return AddResult{}, err
	}
	return o.Add(ctx, text, opts)
}
