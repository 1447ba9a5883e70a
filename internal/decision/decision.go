// Package decision implements the DecisionEngine capability (spec §4.5):
// given a candidate Fact and its neighbouring existing Memories, decide
// whether to ADD, UPDATE, MERGE, DELETE, or NOOP.
package decision

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/types"
)

// Thresholds are the policy constants of spec §4.5. Zero-value Thresholds
// resolves to DefaultThresholds via Engine's constructor.
type Thresholds struct {
	// Dup is the similarity at/above which a neighbour is considered a
	// duplicate candidate for UPDATE/MERGE (default 0.85).
	Dup float64
	// Negation is the minimum confidence required to accept a DELETE
	// decision driven by an explicit negation (default 0.85).
	Negation float64
	// Exact is the similarity at/above which a fact is an exact paraphrase
	// and the decision is NOOP (default 0.98).
	Exact float64
}

// DefaultThresholds returns the spec-mandated default policy constants.
func DefaultThresholds() Thresholds {
	return Thresholds{Dup: 0.85, Negation: 0.85, Exact: 0.98}
}

const fallbackConfidenceCeiling = 0.7

// Engine is the DecisionEngine capability.
type Engine struct {
	model      llm.LLM // nil means rule-based only
	thresholds Thresholds
}

// Option configures an Engine beyond its defaults.
type Option func(*Engine)

// WithThresholds overrides the default policy thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// New builds an Engine. model may be nil, in which case every call uses
// the rule-based fallback directly.
func New(model llm.LLM, opts ...Option) *Engine {
	e := &Engine{model: model, thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const decisionFunctionName = "emit_decision"

var decisionFunction = llm.FunctionSpec{
	Name:        decisionFunctionName,
	Description: "Emit the mutation decision for the candidate fact given its neighbourhood.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":         map[string]any{"type": "string", "enum": []string{"ADD", "UPDATE", "MERGE", "DELETE", "NOOP"}},
			"target_id":      map[string]any{"type": "string"},
			"merge_target_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"merged_content": map[string]any{"type": "string"},
			"reasoning":      map[string]any{"type": "string"},
			"confidence":     map[string]any{"type": "number"},
		},
		"required": []string{"action", "reasoning", "confidence"},
	},
}

type llmDecision struct {
	Action         string   `json:"action"`
	TargetID       string   `json:"target_id"`
	MergeTargetIDs []string `json:"merge_target_ids"`
	MergedContent  string   `json:"merged_content"`
	Reasoning      string   `json:"reasoning"`
	Confidence     float64  `json:"confidence"`
}

// Decide produces a Decision for fact given its neighbourhood (similarity
// descending is not required by the caller, but ties in the rule-based
// path are broken by the neighbourhood's given order). The LLM path is
// tried first when a model is configured; any call or parse failure
// falls back to the deterministic similarity/hash rule with confidence
// clamped to 0.7, per spec §4.5.
func (e *Engine) Decide(ctx context.Context, fact types.Fact, neighbourhood []types.ScoredMemory) (types.Decision, error) {
	if e.model != nil {
		d, err := e.decideWithLLM(ctx, fact, neighbourhood)
		if err == nil {
			return d, nil
		}
	}
	return e.decideRuleBased(fact, neighbourhood), nil
}

func (e *Engine) decideWithLLM(ctx context.Context, fact types.Fact, neighbourhood []types.ScoredMemory) (types.Decision, error) {
	prompt := buildPrompt(fact, neighbourhood)
	result, err := e.model.GenerateWithFunctions(ctx, prompt, []llm.FunctionSpec{decisionFunction})
	if err != nil {
		return types.Decision{}, err
	}
	raw, ok := findCall(result)
	if !ok {
		return types.Decision{}, apperr.Capabilityf("decision.decide_with_llm", "model did not call %s", decisionFunctionName)
	}
	var ld llmDecision
	if err := json.Unmarshal(raw, &ld); err != nil {
		return types.Decision{}, apperr.Wrap(apperr.Capability, "decision.decide_with_llm", err)
	}
	action := types.DecisionAction(strings.ToUpper(ld.Action))
	if !validAction(action) {
		return types.Decision{}, apperr.Capabilityf("decision.decide_with_llm", "model emitted unknown action %q", ld.Action)
	}
	if ld.Confidence < 0 || ld.Confidence > 1 {
		return types.Decision{}, apperr.Capabilityf("decision.decide_with_llm", "model emitted out-of-range confidence %v", ld.Confidence)
	}
	if action == types.ActionDelete && ld.Confidence < e.thresholds.Negation {
		return types.Decision{}, apperr.Capabilityf("decision.decide_with_llm", "model emitted DELETE with confidence %v below negation threshold %v", ld.Confidence, e.thresholds.Negation)
	}
	return types.Decision{
		Action:         action,
		Fact:           fact,
		TargetID:       ld.TargetID,
		MergeTargetIDs: ld.MergeTargetIDs,
		MergedContent:  ld.MergedContent,
		Reasoning:      ld.Reasoning,
		Confidence:     ld.Confidence,
		Neighbourhood:  neighbourhood,
	}, nil
}

func validAction(a types.DecisionAction) bool {
	switch a {
	case types.ActionAdd, types.ActionUpdate, types.ActionMerge, types.ActionDelete, types.ActionNoop:
		return true
	}
	return false
}

func findCall(result llm.FunctionResult) ([]byte, bool) {
	for _, call := range result.FunctionCalls {
		if call.Name == decisionFunctionName {
			return call.Arguments, true
		}
	}
	return nil, false
}

func buildPrompt(fact types.Fact, neighbourhood []types.ScoredMemory) []llm.Message {
	var b strings.Builder
	b.WriteString("Candidate fact: ")
	b.WriteString(fact.Content)
	b.WriteString("\nNeighbouring memories:\n")
	for _, n := range neighbourhood {
		b.WriteString("- [")
		b.WriteString(n.Memory.ID)
		b.WriteString("] similarity=")
		b.WriteString(formatFloat(n.Similarity))
		b.WriteString(": ")
		b.WriteString(n.Memory.Content)
		b.WriteString("\n")
	}
	return []llm.Message{{Role: llm.RoleUser, Content: b.String()}}
}

// decideRuleBased applies the deterministic policy of spec §4.5 using
// only similarity and content-hash comparisons. Confidence is clamped to
// fallbackConfidenceCeiling (0.7) since no model judgement backs it.
func (e *Engine) decideRuleBased(fact types.Fact, neighbourhood []types.ScoredMemory) types.Decision {
	t := e.thresholds
	factHash := types.ContentHash(fact.Content)

	best, bestSim := bestNeighbour(neighbourhood)

	if best != nil && (bestSim >= t.Exact || best.Memory.ContentHash == factHash) {
		return types.Decision{
			Action:        types.ActionNoop,
			Fact:          fact,
			TargetID:      best.Memory.ID,
			Reasoning:     "rule_based: exact paraphrase (hash or similarity match)",
			Confidence:    fallbackConfidenceCeiling,
			Neighbourhood: neighbourhood,
		}
	}

	if isNegation(fact.Content) && best != nil && bestSim >= t.Dup {
		return types.Decision{
			Action:        types.ActionDelete,
			Fact:          fact,
			TargetID:      best.Memory.ID,
			Reasoning:     "rule_based: explicit negation of an existing memory",
			Confidence:    fallbackConfidenceCeiling,
			Neighbourhood: neighbourhood,
		}
	}

	mergeGroup := mutuallySimilar(neighbourhood, t.Dup)
	if len(mergeGroup) >= 2 {
		ids := make([]string, len(mergeGroup))
		contents := make([]string, 0, len(mergeGroup)+1)
		for i, m := range mergeGroup {
			ids[i] = m.Memory.ID
			contents = append(contents, m.Memory.Content)
		}
		contents = append(contents, fact.Content)
		return types.Decision{
			Action:         types.ActionMerge,
			Fact:           fact,
			MergeTargetIDs: ids,
			MergedContent:  strings.Join(contents, " "),
			Reasoning:      "rule_based: multiple neighbours mutually similar above tau_dup",
			Confidence:     fallbackConfidenceCeiling,
			Neighbourhood:  neighbourhood,
		}
	}

	if best != nil && bestSim >= t.Dup && len([]rune(fact.Content)) > len([]rune(best.Memory.Content)) {
		return types.Decision{
			Action:        types.ActionUpdate,
			Fact:          fact,
			TargetID:      best.Memory.ID,
			Reasoning:     "rule_based: new fact strictly longer than matched neighbour above tau_dup",
			Confidence:    fallbackConfidenceCeiling,
			Neighbourhood: neighbourhood,
		}
	}

	return types.Decision{
		Action:        types.ActionAdd,
		Fact:          fact,
		Reasoning:     "rule_based: no neighbour exceeded tau_dup",
		Confidence:    fallbackConfidenceCeiling,
		Neighbourhood: neighbourhood,
	}
}

func bestNeighbour(neighbourhood []types.ScoredMemory) (*types.ScoredMemory, float64) {
	if len(neighbourhood) == 0 {
		return nil, 0
	}
	best := neighbourhood[0]
	for _, n := range neighbourhood[1:] {
		if n.Similarity > best.Similarity {
			best = n
		}
	}
	return &best, best.Similarity
}

// mutuallySimilar returns every neighbour at/above the dup threshold,
// since MERGE requires two or more neighbours plus the new fact to be
// mutually similar (the shared threshold against the fact stands in for
// full pairwise neighbour-to-neighbour similarity, which the neighbourhood
// bundle does not carry).
func mutuallySimilar(neighbourhood []types.ScoredMemory, threshold float64) []types.ScoredMemory {
	var out []types.ScoredMemory
	for _, n := range neighbourhood {
		if n.Similarity >= threshold {
			out = append(out, n)
		}
	}
	return out
}

var negationMarkers = []string{"no longer", "not anymore", "is not", "isn't", "never ", "doesn't", "stopped "}

func isNegation(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range negationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
