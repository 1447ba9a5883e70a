package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/types"
)

func msgs(contents ...string) []types.Message {
	out := make([]types.Message, len(contents))
	for i, c := range contents {
		out[i] = types.Message{Role: types.MessageRoleUser, Content: c}
	}
	return out
}

func TestExtractEmptyInputReturnsNil(t *testing.T) {
	e := New(nil)
	facts, err := e.Extract(context.Background(), nil)
	if err != nil || facts != nil {
		t.Fatalf("Extract(nil) = (%v, %v), want (nil, nil)", facts, err)
	}
}

func TestExtractRuleBasedDropsShortSentences(t *testing.T) {
	e := New(nil)
	facts, err := e.Extract(context.Background(), msgs("Ok. The quick brown fox jumps over the lazy dog."))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, f := range facts {
		if len([]rune(f.Content)) < defaultMinSentenceLen {
			t.Fatalf("fact %q shorter than minimum", f.Content)
		}
		if f.Content == "" {
			t.Fatal("fact had empty content")
		}
	}
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
}

func TestExtractRuleBasedDefaults(t *testing.T) {
	e := New(nil)
	facts, err := e.Extract(context.Background(), msgs("Alice visited Paris on 2024-01-05."))
	if err != nil || len(facts) != 1 {
		t.Fatalf("Extract = (%v, %v)", facts, err)
	}
	f := facts[0]
	if f.Confidence != fallbackConfidence {
		t.Errorf("Confidence = %v, want %v", f.Confidence, fallbackConfidence)
	}
	if f.ImportanceHint == nil || *f.ImportanceHint != fallbackImportance {
		t.Errorf("ImportanceHint = %v, want %v", f.ImportanceHint, fallbackImportance)
	}
	if len(f.Entities) == 0 {
		t.Error("expected at least one tagged entity (date or capitalized span)")
	}
}

func TestExtractRuleBasedIsDeterministic(t *testing.T) {
	e := New(nil)
	a, _ := e.Extract(context.Background(), msgs("Bob met Carol in London. It was a long trip."))
	b, _ := e.Extract(context.Background(), msgs("Bob met Carol in London. It was a long trip."))
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Fatalf("rule-based extraction not deterministic:\n%s\nvs\n%s", aj, bj)
	}
}

type fakeLLMFacts struct {
	result llm.FunctionResult
	err    error
}

func (f fakeLLMFacts) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	return "", errors.New("not used")
}

func (f fakeLLMFacts) GenerateWithFunctions(ctx context.Context, messages []llm.Message, functions []llm.FunctionSpec) (llm.FunctionResult, error) {
	return f.result, f.err
}

func TestExtractUsesLLMWhenAvailable(t *testing.T) {
	args, _ := json.Marshal(map[string]any{
		"facts": []map[string]any{
			{"content": "User prefers dark mode", "category": "preference", "confidence": 0.9},
		},
	})
	model := fakeLLMFacts{result: llm.FunctionResult{
		FunctionCalls: []llm.FunctionCall{{Name: extractionFunctionName, Arguments: args}},
	}}
	e := New(model)
	facts, err := e.Extract(context.Background(), msgs("I like dark mode."))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 1 || facts[0].Content != "User prefers dark mode" {
		t.Fatalf("facts = %+v", facts)
	}
}

func TestExtractFallsBackOnLLMFailure(t *testing.T) {
	model := fakeLLMFacts{err: errors.New("provider down")}
	e := New(model)
	facts, err := e.Extract(context.Background(), msgs("This sentence is long enough to survive the filter."))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) == 0 {
		t.Fatal("expected rule-based fallback facts")
	}
}

func TestExtractFallsBackOnUnparsableLLMOutput(t *testing.T) {
	model := fakeLLMFacts{result: llm.FunctionResult{
		FunctionCalls: []llm.FunctionCall{{Name: extractionFunctionName, Arguments: []byte("not json")}},
	}}
	e := New(model)
	facts, err := e.Extract(context.Background(), msgs("This sentence is long enough to survive the filter."))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) == 0 {
		t.Fatal("expected rule-based fallback facts")
	}
}
