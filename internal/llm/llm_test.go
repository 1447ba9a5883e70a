package llm

import (
	"context"
	"testing"
)

// fakeLLM is a minimal stand-in used to confirm the interface shape is
// usable by callers without pulling in a real provider.
type fakeLLM struct{}

func (fakeLLM) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	return messages[len(messages)-1].Content, nil
}

func (fakeLLM) GenerateWithFunctions(ctx context.Context, messages []Message, functions []FunctionSpec) (FunctionResult, error) {
	if len(functions) == 0 {
		text, err := fakeLLM{}.Generate(ctx, messages)
		return FunctionResult{Text: text}, err
	}
	return FunctionResult{FunctionCalls: []FunctionCall{{Name: functions[0].Name, Arguments: []byte("{}")}}}, nil
}

func TestFakeLLMSatisfiesInterface(t *testing.T) {
	var l LLM = fakeLLM{}
	out, err := l.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err != nil || out != "hello" {
		t.Fatalf("Generate = (%q, %v), want (hello, nil)", out, err)
	}
}

func TestFakeLLMGenerateWithFunctionsNoFunctions(t *testing.T) {
	var l LLM = fakeLLM{}
	res, err := l.GenerateWithFunctions(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil || res.Text != "hi" || len(res.FunctionCalls) != 0 {
		t.Fatalf("GenerateWithFunctions = %+v, %v", res, err)
	}
}

func TestFakeLLMGenerateWithFunctionsReturnsCall(t *testing.T) {
	var l LLM = fakeLLM{}
	res, err := l.GenerateWithFunctions(context.Background(), nil, []FunctionSpec{{Name: "lookup"}})
	if err != nil || len(res.FunctionCalls) != 1 || res.FunctionCalls[0].Name != "lookup" {
		t.Fatalf("GenerateWithFunctions = %+v, %v", res, err)
	}
}
