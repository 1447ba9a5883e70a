// Package types defines the AgentMem data model: Memory, HistoryEntry,
// Association, Entity, Relation, ScheduleContext, DeploymentMode, and
// CacheEntry (spec §3).
package types

import (
	"time"

	"github.com/google/uuid"
)

// MemoryType is the closed set of memory kinds a Memory can carry.
type MemoryType string

const (
	Episodic   MemoryType = "episodic"
	Semantic   MemoryType = "semantic"
	Procedural MemoryType = "procedural"
	Working    MemoryType = "working"
	Core       MemoryType = "core"
	Resource   MemoryType = "resource"
	Knowledge  MemoryType = "knowledge"
	Contextual MemoryType = "contextual"
)

// Scope is the closed set of visibility scopes for a Memory.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeUser    Scope = "user"
	ScopeAgent   Scope = "agent"
	ScopeGlobal  Scope = "global"
)

// Level is the closed set of durability levels for a Memory.
type Level string

const (
	LevelTemporary Level = "temporary"
	LevelStandard  Level = "standard"
	LevelDurable   Level = "durable"
)

// Memory is the unit of record (spec §3).
type Memory struct {
	ID               string
	OrganizationID   string
	UserID           string
	AgentID          string
	SessionID        string
	Content          string
	ContentHash      string
	MemoryType       MemoryType
	Scope            Scope
	Level            Level
	Importance       float64
	AccessCount      int64
	LastAccessedAt   time.Time
	Embedding        []float32
	ExpiresAt        *time.Time
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsDeleted        bool
	CreatedByID      string
	LastUpdatedByID  string
	Metadata         map[string]any
}

// NewID generates an opaque unique identifier for any of the entities in
// this package.
func NewID() string { return uuid.NewString() }

// HasEmbedding reports whether the memory carries a dense vector, which
// gates eligibility for the dense-search path (spec §3 invariant).
func (m *Memory) HasEmbedding() bool { return len(m.Embedding) > 0 }

// IsExpired reports whether a Working memory's TTL has elapsed as of now.
// Non-working memories, or memories with no ExpiresAt, are never expired.
func (m *Memory) IsExpired(now time.Time) bool {
	if m.MemoryType != Working || m.ExpiresAt == nil {
		return false
	}
	return !m.ExpiresAt.After(now)
}

// EventKind is the closed set of HistoryEntry event kinds.
type EventKind string

const (
	EventAdd    EventKind = "ADD"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
	EventMerge  EventKind = "MERGE"
	EventAccess EventKind = "ACCESS"
	EventNoop   EventKind = "NOOP"
)

// HistoryEntry is an append-only audit record for a Memory (spec §3).
type HistoryEntry struct {
	ID         string
	MemoryID   string
	Event      EventKind
	OldMemory  *Memory
	NewMemory  *Memory
	ActorID    string
	CreatedAt  time.Time
	Reason     string
}

// AssociationType is the closed set of directed-edge kinds between Memories.
type AssociationType string

const (
	AssocCausal       AssociationType = "causal"
	AssocTemporal     AssociationType = "temporal"
	AssocSimilar      AssociationType = "similar"
	AssocContrast     AssociationType = "contrast"
	AssocHierarchical AssociationType = "hierarchical"
	AssocReference    AssociationType = "reference"
)

// CustomAssociationType builds an AssociationType for the Custom(name) variant.
func CustomAssociationType(name string) AssociationType {
	return AssociationType("custom:" + name)
}

// Association is a directed typed edge between two Memories (spec §3).
// Endpoints are referenced by id only — associations never hold direct
// cross-pointers to Memory values, which keeps deletion straightforward and
// avoids ownership cycles (spec §9).
type Association struct {
	ID             string
	FromMemoryID   string
	ToMemoryID     string
	AssociationType AssociationType
	Strength       float64
	Confidence     float64
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Entity is a structured fact extracted from content.
type Entity struct {
	ID         string
	Name       string
	Type       string
	Span       *[2]int
	Confidence float64
}

// Relation is a structured subject-predicate-object fact extracted from content.
type Relation struct {
	ID           string
	SubjectID    string
	SubjectName  string
	Predicate    string
	ObjectID     string
	ObjectName   string
	RelationType string
	Confidence   float64
}

// MessageRole is the closed set of speaker roles in a conversational turn
// passed to add_with_messages and FactExtractor.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one conversational turn. Timestamp is optional; FactExtractor
// treats a zero Timestamp as "unknown" rather than "now".
type Message struct {
	Role      MessageRole
	Content   string
	Timestamp *time.Time
}

// ScheduleContext is transient input to the Scheduler; it is never persisted.
type ScheduleContext struct {
	Query            string
	CurrentTimestamp time.Time
	RelevanceScore   float64
}

// CacheLevel names the cache tier a CacheEntry lives in.
type CacheLevel string

const (
	CacheLevelL1 CacheLevel = "L1"
	CacheLevelL2 CacheLevel = "L2"
)

// CacheEntry is a transient L1/L2 cache value; it is never persisted.
type CacheEntry struct {
	ValueBytes  []byte
	SizeBytes   int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	LastAccessed time.Time
	Level       CacheLevel
}
