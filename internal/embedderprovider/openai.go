// Package embedderprovider implements the embedder.Embedder capability
// against hosted embedding providers.
package embedderprovider

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentmem/agentmem/internal/apperr"
)

// dimensionByModel records the fixed output width of each embedding model
// this provider supports, since the OpenAI API does not echo dimension
// back on a request and AgentMem requires it fixed per process (spec §4).
var dimensionByModel = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

var errAPIKeyRequired = errors.New("openai: API key required")

// OpenAI implements embedder.Embedder against the OpenAI embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// New builds an OpenAI-backed Embedder. OPENAI_API_KEY takes precedence
// over an explicitly supplied apiKey, matching the env-var-first
// resolution used throughout the rest of the capability providers.
func New(apiKey string, model openai.EmbeddingModel) (*OpenAI, error) {
	if envKey := os.Getenv("OPENAI_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, apperr.Validationf("embedderprovider.new", "%s", errAPIKeyRequired)
	}
	dim, ok := dimensionByModel[model]
	if !ok {
		return nil, apperr.Validationf("embedderprovider.new", "unsupported embedding model %q", model)
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model, dimension: dim}, nil
}

// Embed implements embedder.Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements embedder.Embedder using OpenAI's native batch
// embeddings endpoint rather than looping Embed.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Capability, "embedderprovider.embed_batch", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperr.Internalf("embedderprovider.embed_batch", "provider returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if len(d.Embedding) != o.dimension {
			return nil, apperr.Validationf("embedderprovider.embed_batch", "expected dimension %d, got %d", o.dimension, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimension implements embedder.Embedder.
func (o *OpenAI) Dimension() int { return o.dimension }
