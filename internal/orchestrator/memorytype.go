package orchestrator

import "github.com/agentmem/agentmem/internal/types"

// categoryMemoryTypes maps an extractor-produced Fact.Category to the
// MemoryType the add pipeline restricts neighbour search to (spec §4.9
// step 3, "restricted to the fact's inferred memory_type"). Extraction's
// Category is a free-form string (it is also the raw LLM function-call
// output), so this mapping is necessarily a closed-set-with-default: a
// category outside the known set falls back to Semantic, the most
// general durable memory type.
var categoryMemoryTypes = map[string]types.MemoryType{
	"general":    types.Semantic,
	"fact":       types.Semantic,
	"preference": types.Semantic,
	"event":      types.Episodic,
	"episode":    types.Episodic,
	"skill":      types.Procedural,
	"howto":      types.Procedural,
	"procedure":  types.Procedural,
	"task":       types.Working,
	"reminder":   types.Working,
	"identity":   types.Core,
	"resource":   types.Resource,
	"document":   types.Resource,
	"knowledge":  types.Knowledge,
	"context":    types.Contextual,
}

// inferMemoryType resolves a Fact's Category to a MemoryType, defaulting
// to Semantic for unknown or empty categories.
func inferMemoryType(category string) types.MemoryType {
	if mt, ok := categoryMemoryTypes[category]; ok {
		return mt
	}
	return types.Semantic
}
