package embedderprovider

import (
	"context"
	"os"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentmem/agentmem/internal/apperr"
)

func TestNewRequiresAPIKey(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")
	_, err := New("", openai.SmallEmbedding3)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("New with empty key = %v, want Validation", err)
	}
}

func TestNewRejectsUnsupportedModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	_, err := New("", openai.EmbeddingModel("does-not-exist"))
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("New with unsupported model = %v, want Validation", err)
	}
}

func TestNewReportsDimension(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	e, err := New("", openai.SmallEmbedding3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Dimension() != 1536 {
		t.Fatalf("Dimension() = %d, want 1536", e.Dimension())
	}
}

func TestEmbedBatchEmptyInputShortCircuits(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	e, err := New("", openai.SmallEmbedding3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || out != nil {
		t.Fatalf("EmbedBatch(nil) = (%v, %v), want (nil, nil)", out, err)
	}
}
