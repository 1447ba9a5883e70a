// Package llm defines the LLM capability contract (spec §4 external
// interfaces): text generation, with an optional function-calling mode
// used by FactExtractor and DecisionEngine to request structured output.
package llm

import "context"

// Role identifies the speaker of a Message in a generation request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversational context passed to Generate.
type Message struct {
	Role    Role
	Content string
}

// FunctionSpec describes a callable function offered to the model in a
// GenerateWithFunctions request. Parameters is a JSON Schema object.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// FunctionCall is a model-requested invocation of one of the offered
// functions. Arguments is the raw JSON the model produced; callers
// unmarshal it according to the matching FunctionSpec.Parameters.
type FunctionCall struct {
	Name      string
	Arguments []byte
}

// FunctionResult is the text-plus-function-calls shape generate_with_functions
// returns. Text may be empty when the model only emits function calls.
type FunctionResult struct {
	Text          string
	FunctionCalls []FunctionCall
}

// LLM is the capability contract every generation-backed component depends
// on. Implementations must classify failures through internal/apperr:
// Capability for provider errors, Transient for retryable infrastructure
// failures. Function-calling support is optional per spec §4 — a provider
// that cannot support it should return an apperr.Capability error from
// GenerateWithFunctions rather than silently ignoring the functions
// argument.
type LLM interface {
	// Generate produces free-text completion for the given message history.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateWithFunctions additionally offers a set of callable functions;
	// the model may reply with text, function calls, or both.
	GenerateWithFunctions(ctx context.Context, messages []Message, functions []FunctionSpec) (FunctionResult, error)
}
