// Package repository defines the RepositoryLayer contract (spec §4.1): a
// uniform CRUD and query surface over one of two backends (embedded SQLite
// or server PostgreSQL, with Dolt as an optional alternate server backend),
// with transaction boundaries that couple every mutation to its
// HistoryEntry. sqlitestore and doltstore hold a prepared-statement cache
// that their query methods do not use.
package repository

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/types"
)

// MemoryRepository is the per-entity contract for Memory records.
type MemoryRepository interface {
	Create(ctx context.Context, m *types.Memory) error
	FindByID(ctx context.Context, id string) (*types.Memory, error)
	BatchFindByIDs(ctx context.Context, ids []string) ([]*types.Memory, error)
	FindByContentHash(ctx context.Context, userID, contentHash string) (*types.Memory, error)
	// Update performs an optimistic-concurrency write: it must verify the
	// Memory's current Version matches expectedVersion and atomically bump
	// it, or return an apperr.Conflict error.
	Update(ctx context.Context, m *types.Memory, expectedVersion int64) error
	// SoftDelete sets is_deleted=true; rows remain queryable through history.
	SoftDelete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter types.MemoryFilter, page types.Page) ([]*types.Memory, error)
	// SearchLexical performs tokenized case-insensitive matching over
	// content with optional metadata filters (spec §4.1).
	SearchLexical(ctx context.Context, query string, filter types.MemoryFilter, page types.Page) ([]types.ScoredMemory, error)
	// BulkDeleteByParent soft-deletes every live memory whose agent id,
	// user id, or session id equals parentID, returning the count.
	BulkDeleteByParent(ctx context.Context, parentID string) (int64, error)
	// SweepExpiredWorking hard-deletes Working memories whose ExpiresAt has
	// elapsed as of now. Returns the number of rows removed.
	SweepExpiredWorking(ctx context.Context, now time.Time) (int64, error)
}

// HistoryRepository is the per-entity contract for HistoryEntry records.
type HistoryRepository interface {
	Append(ctx context.Context, h *types.HistoryEntry) error
	ListByMemory(ctx context.Context, memoryID string, page types.Page) ([]*types.HistoryEntry, error)
}

// AssociationRepository is the per-entity contract for Association records.
type AssociationRepository interface {
	Create(ctx context.Context, a *types.Association) error
	FindByID(ctx context.Context, id string) (*types.Association, error)
	ListFrom(ctx context.Context, fromMemoryID string, page types.Page) ([]*types.Association, error)
	ListTo(ctx context.Context, toMemoryID string, page types.Page) ([]*types.Association, error)
	Delete(ctx context.Context, id string) error
	BulkDeleteByParent(ctx context.Context, memoryID string) (int64, error)
}

// Mutation bundles a single Memory mutation with the HistoryEntry that must
// commit atomically with it (spec §4.1 "every mutating operation is
// executed inside a transaction that also writes the corresponding
// HistoryEntry; either both succeed or both fail").
type Mutation struct {
	Memory       *types.Memory
	History      *types.HistoryEntry
	Associations []*types.Association
	// ExpectedVersion is ignored for inserts (event == ADD); for updates,
	// soft-deletes, and merges it must match the stored version.
	ExpectedVersion int64
}

// Tx is the transaction handle passed into a WithTx callback. It
// exposes the same per-entity repositories as Repository, scoped to the
// open transaction.
type Tx interface {
	Memories() MemoryRepository
	History() HistoryRepository
	Associations() AssociationRepository
}

// Repository is the RepositoryLayer capability consumed by the
// Orchestrator. Implementations: sqlitestore (embedded, database/sql over
// modernc.org/sqlite), pgstore (server, a pgx/v5 pool) and doltstore
// (optional server, database/sql over go-sql-driver/mysql).
type Repository interface {
	Memories() MemoryRepository
	History() HistoryRepository
	Associations() AssociationRepository

	// ApplyMutations commits a batch of Mutations inside a single
	// transaction (spec §4.9 step 5): either every mutation and its
	// history entry lands, or none do.
	ApplyMutations(ctx context.Context, muts []Mutation) error

	// WithTx runs fn inside one transaction and commits iff fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Stats reports point-in-time repository statistics for spec §6's
	// `stats()` surface and the Observability vector-count/connection gauges.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Stats is a snapshot of repository-level counters.
type Stats struct {
	MemoryCount     int64
	HistoryCount    int64
	AssociationCount int64
	OpenConnections int
}
