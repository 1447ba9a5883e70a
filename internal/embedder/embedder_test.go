package embedder

import (
	"context"
	"testing"
)

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f fakeEmbedder) Dimension() int { return f.dim }

func TestFakeEmbedderSatisfiesInterface(t *testing.T) {
	var e Embedder = fakeEmbedder{dim: 8}
	v, err := e.Embed(context.Background(), "hello")
	if err != nil || len(v) != 8 {
		t.Fatalf("Embed = (len %d, %v), want (8, nil)", len(v), err)
	}
	if e.Dimension() != 8 {
		t.Fatalf("Dimension() = %d, want 8", e.Dimension())
	}
}

func TestFakeEmbedderBatchPreservesOrder(t *testing.T) {
	var e Embedder = fakeEmbedder{dim: 4}
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil || len(out) != 3 {
		t.Fatalf("EmbedBatch = (len %d, %v), want (3, nil)", len(out), err)
	}
}
