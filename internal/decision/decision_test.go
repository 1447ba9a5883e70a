package decision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/types"
)

func neighbour(id, content string, similarity float64) types.ScoredMemory {
	return types.ScoredMemory{
		Memory:     types.Memory{ID: id, Content: content, ContentHash: types.ContentHash(content)},
		Similarity: similarity,
	}
}

func TestDecideRuleBasedAddWhenNoNeighbourNearDup(t *testing.T) {
	e := New(nil)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User lives in Denver"}, []types.ScoredMemory{
		neighbour("m1", "User likes tea", 0.2),
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionAdd {
		t.Fatalf("Action = %v, want ADD", d.Action)
	}
}

func TestDecideRuleBasedNoopOnExactHash(t *testing.T) {
	e := New(nil)
	content := "User lives in Denver"
	d, err := e.Decide(context.Background(), types.Fact{Content: content}, []types.ScoredMemory{
		neighbour("m1", content, 0.1),
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionNoop {
		t.Fatalf("Action = %v, want NOOP", d.Action)
	}
}

func TestDecideRuleBasedUpdateWhenLongerAndDup(t *testing.T) {
	e := New(nil)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User lives in Denver, Colorado near downtown"}, []types.ScoredMemory{
		neighbour("m1", "User lives in Denver", 0.9),
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionUpdate || d.TargetID != "m1" {
		t.Fatalf("Decide = %+v, want UPDATE targeting m1", d)
	}
}

func TestDecideRuleBasedDeleteOnNegation(t *testing.T) {
	e := New(nil)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User no longer lives in Denver"}, []types.ScoredMemory{
		neighbour("m1", "User lives in Denver", 0.9),
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionDelete {
		t.Fatalf("Action = %v, want DELETE", d.Action)
	}
	if d.Confidence != fallbackConfidenceCeiling {
		t.Fatalf("Confidence = %v, want clamped %v", d.Confidence, fallbackConfidenceCeiling)
	}
}

func TestDecideRuleBasedMergeOnMultipleDupNeighbours(t *testing.T) {
	e := New(nil)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User's favorite color is blue"}, []types.ScoredMemory{
		neighbour("m1", "User likes blue", 0.9),
		neighbour("m2", "User prefers the color blue", 0.88),
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionMerge || len(d.MergeTargetIDs) != 2 {
		t.Fatalf("Decide = %+v, want MERGE of 2 targets", d)
	}
}

type fakeLLMDecision struct {
	result llm.FunctionResult
	err    error
}

func (f fakeLLMDecision) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	return "", errors.New("not used")
}

func (f fakeLLMDecision) GenerateWithFunctions(ctx context.Context, messages []llm.Message, functions []llm.FunctionSpec) (llm.FunctionResult, error) {
	return f.result, f.err
}

func TestDecideUsesLLMWhenAvailable(t *testing.T) {
	args, _ := json.Marshal(map[string]any{
		"action":     "ADD",
		"reasoning":  "novel fact",
		"confidence": 0.95,
	})
	model := fakeLLMDecision{result: llm.FunctionResult{
		FunctionCalls: []llm.FunctionCall{{Name: decisionFunctionName, Arguments: args}},
	}}
	e := New(model)
	d, err := e.Decide(context.Background(), types.Fact{Content: "new fact"}, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionAdd || d.Confidence != 0.95 {
		t.Fatalf("Decide = %+v", d)
	}
}

func TestDecideFallsBackOnLLMFailure(t *testing.T) {
	model := fakeLLMDecision{err: errors.New("provider down")}
	e := New(model)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User lives in Denver"}, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionAdd {
		t.Fatalf("Action = %v, want ADD fallback", d.Action)
	}
}

func TestDecideFallsBackOnInvalidAction(t *testing.T) {
	args, _ := json.Marshal(map[string]any{"action": "FROBNICATE", "reasoning": "x", "confidence": 0.5})
	model := fakeLLMDecision{result: llm.FunctionResult{
		FunctionCalls: []llm.FunctionCall{{Name: decisionFunctionName, Arguments: args}},
	}}
	e := New(model)
	d, err := e.Decide(context.Background(), types.Fact{Content: "User lives in Denver"}, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionAdd {
		t.Fatalf("Action = %v, want ADD fallback after invalid action", d.Action)
	}
}
