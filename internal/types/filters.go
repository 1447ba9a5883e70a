package types

import "time"

// MemoryFilter narrows repository queries and vector-index searches.
// All fields are optional; a nil/zero field means "no filter on this axis",
// except IncludeDeleted: when false, soft-deleted memories are excluded.
type MemoryFilter struct {
	UserID         string
	AgentID        string
	OrganizationID string
	SessionID      string
	MemoryType     *MemoryType
	Scope          *Scope
	MinImportance  *float64
	MaxAgeDays     *float64
	MinAccessCount *int64
	IncludeDeleted bool
}

// Page describes a (limit, offset) slice of a result set.
type Page struct {
	Limit  int
	Offset int
}

// Fact is a candidate unit of information produced by extraction, not yet
// a Memory (spec glossary).
type Fact struct {
	Content        string
	Category       string
	Confidence     float64
	Entities       []Entity
	Relations      []Relation
	ImportanceHint *float64
}

// DecisionAction is the closed set of mutation plans a DecisionEngine may emit.
type DecisionAction string

const (
	ActionAdd    DecisionAction = "ADD"
	ActionUpdate DecisionAction = "UPDATE"
	ActionMerge  DecisionAction = "MERGE"
	ActionDelete DecisionAction = "DELETE"
	ActionNoop   DecisionAction = "NOOP"
)

// actionPriority totals the tie-break order from spec §4.6:
// MERGE > UPDATE > DELETE > ADD > NOOP.
var actionPriority = map[DecisionAction]int{
	ActionMerge:  5,
	ActionUpdate: 4,
	ActionDelete: 3,
	ActionAdd:    2,
	ActionNoop:   1,
}

// Priority returns the action's tie-break rank; higher wins.
func (a DecisionAction) Priority() int { return actionPriority[a] }

// Decision is the plan to apply to storage for a Fact (spec glossary, §4.5).
type Decision struct {
	Action        DecisionAction
	Fact          Fact
	TargetID      string
	MergeTargetIDs []string
	MergedContent string
	Reasoning     string
	Confidence    float64
	// Neighbourhood carries the candidate memories considered when this
	// decision was made, retained for conflict reconciliation and audit.
	Neighbourhood []ScoredMemory
}

// ScoredMemory pairs a Memory with a similarity/relevance score produced
// by retrieval or neighbourhood search.
type ScoredMemory struct {
	Memory         Memory
	Similarity     float64
	VectorScore    float64
	FulltextScore  float64
	FinalScore     float64
}

// SweepTimestamp normalizes a time.Time to UTC for deterministic comparisons
// in the recency decay and TTL-sweep paths.
func SweepTimestamp(t time.Time) time.Time { return t.UTC() }
