// Package extractor implements the FactExtractor capability (spec §4.4):
// turning a message window into candidate Facts, with a deterministic
// rule-based fallback when the LLM path is unavailable or its output
// cannot be parsed.
package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/types"
)

const (
	defaultMinSentenceLen = 8
	fallbackImportance    = 0.5
	fallbackConfidence    = 0.6
)

// Extractor is the FactExtractor capability: turn an ordered message list
// into candidate Facts.
type Extractor struct {
	model          llm.LLM // nil means rule-based only
	minSentenceLen int
}

// Option configures an Extractor beyond its defaults.
type Option func(*Extractor)

// WithMinSentenceLen overrides the minimum sentence length (in runes) the
// rule-based fallback keeps. Shorter sentences are dropped as noise.
func WithMinSentenceLen(n int) Option {
	return func(e *Extractor) { e.minSentenceLen = n }
}

// New builds an Extractor. model may be nil, in which case every call
// uses the rule-based fallback directly.
func New(model llm.LLM, opts ...Option) *Extractor {
	e := &Extractor{model: model, minSentenceLen: defaultMinSentenceLen}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// llmFact is the wire shape requested from the model's structured JSON
// output. Field names are part of the extraction prompt contract, not
// just a Go convenience, so they are not renamed from the prompt's schema.
type llmFact struct {
	Content        string   `json:"content"`
	Category       string   `json:"category"`
	Confidence     float64  `json:"confidence"`
	Entities       []string `json:"entities"`
	ImportanceHint *float64 `json:"importance_hint"`
}

const extractionFunctionName = "emit_facts"

var extractionFunction = llm.FunctionSpec{
	Name:        extractionFunctionName,
	Description: "Emit the list of candidate facts found in the conversation.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"facts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content":         map[string]any{"type": "string"},
						"category":        map[string]any{"type": "string"},
						"confidence":      map[string]any{"type": "number"},
						"entities":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"importance_hint": map[string]any{"type": "number"},
					},
					"required": []string{"content"},
				},
			},
		},
		"required": []string{"facts"},
	},
}

type extractionResponse struct {
	Facts []llmFact `json:"facts"`
}

// Extract turns messages into candidate Facts. It tries the LLM path
// first when a model is configured; any failure to call the model or to
// parse its response falls back to the deterministic rule-based path, per
// spec §4.4. Neither path ever returns a Fact with empty content.
func (e *Extractor) Extract(ctx context.Context, messages []types.Message) ([]types.Fact, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if e.model != nil {
		facts, err := e.extractWithLLM(ctx, messages)
		if err == nil {
			return facts, nil
		}
	}
	return e.extractRuleBased(messages), nil
}

func (e *Extractor) extractWithLLM(ctx context.Context, messages []types.Message) ([]types.Fact, error) {
	result, err := e.model.GenerateWithFunctions(ctx, toLLMMessages(messages), []llm.FunctionSpec{extractionFunction})
	if err != nil {
		return nil, err
	}
	raw, ok := findCall(result, extractionFunctionName)
	if !ok {
		return nil, apperr.Capabilityf("extractor.extract_with_llm", "model did not call %s", extractionFunctionName)
	}
	var resp extractionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.Capability, "extractor.extract_with_llm", err)
	}

	facts := make([]types.Fact, 0, len(resp.Facts))
	for _, f := range resp.Facts {
		content := strings.TrimSpace(f.Content)
		if content == "" {
			continue
		}
		facts = append(facts, types.Fact{
			Content:        content,
			Category:       f.Category,
			Confidence:     f.Confidence,
			Entities:       toEntities(f.Entities),
			ImportanceHint: f.ImportanceHint,
		})
	}
	if len(facts) == 0 {
		return nil, apperr.Capabilityf("extractor.extract_with_llm", "model returned no usable facts")
	}
	return facts, nil
}

func findCall(result llm.FunctionResult, name string) ([]byte, bool) {
	for _, call := range result.FunctionCalls {
		if call.Name == name {
			return call.Arguments, true
		}
	}
	return nil, false
}

func toLLMMessages(messages []types.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		switch m.Role {
		case types.MessageRoleAssistant:
			role = llm.RoleAssistant
		case types.MessageRoleSystem:
			role = llm.RoleSystem
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func toEntities(names []string) []types.Entity {
	if len(names) == 0 {
		return nil
	}
	out := make([]types.Entity, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, types.Entity{Name: n, Type: "unknown", Confidence: fallbackConfidence})
	}
	return out
}

var (
	sentenceSplit = regexp.MustCompile(`(?s)[^.!?]+[.!?]*`)
	capitalSpan   = regexp.MustCompile(`\b[A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*\b`)
	dateSpan      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
)

// extractRuleBased is the deterministic fallback: split into sentences,
// drop short ones, tag capitalized spans and date-like spans as entities,
// and assign the fixed default importance/confidence from spec §4.4. It
// never consults randomness or wall-clock time, so it is deterministic
// given identical inputs.
func (e *Extractor) extractRuleBased(messages []types.Message) []types.Fact {
	var facts []types.Fact
	for _, m := range messages {
		for _, sentence := range sentenceSplit.FindAllString(m.Content, -1) {
			content := strings.TrimSpace(sentence)
			if len([]rune(content)) < e.minSentenceLen {
				continue
			}
			facts = append(facts, types.Fact{
				Content:        content,
				Category:       "general",
				Confidence:     fallbackConfidence,
				Entities:       ruleBasedEntities(content),
				ImportanceHint: floatPtr(fallbackImportance),
			})
		}
	}
	return facts
}

func ruleBasedEntities(content string) []types.Entity {
	var entities []types.Entity
	seen := map[string]bool{}
	for _, span := range dateSpan.FindAllString(content, -1) {
		if seen[span] {
			continue
		}
		seen[span] = true
		entities = append(entities, types.Entity{Name: span, Type: "date", Confidence: fallbackConfidence})
	}
	for _, span := range capitalSpan.FindAllString(content, -1) {
		if seen[span] {
			continue
		}
		seen[span] = true
		entities = append(entities, types.Entity{Name: span, Type: "name", Confidence: fallbackConfidence})
	}
	return entities
}

func floatPtr(f float64) *float64 { return &f }
