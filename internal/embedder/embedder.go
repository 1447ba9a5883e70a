// Package embedder defines the Embedder capability contract (spec §4
// external interfaces): turning text into fixed-dimension vectors for the
// VectorIndex.
package embedder

import "context"

// Embedder is the capability contract every embedding-backed component
// depends on. Dimension is fixed for the lifetime of a process per spec
// §4 ("Dimension is fixed per process"); implementations must return the
// same value from Dimension regardless of input.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in the same order.
	// Implementations should prefer a provider's native batch endpoint
	// over looping Embed, to keep rate-limit and cost behaviour bounded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the fixed vector length this Embedder produces.
	Dimension() int
}
