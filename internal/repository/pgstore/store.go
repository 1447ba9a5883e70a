// Package pgstore implements the server RepositoryLayer backend on top of
// jackc/pgx/v5, the pool-native PostgreSQL driver the wider retrieval pack
// converges on for server deployments, paired with pgvector-go's vector
// type registration so embeddings round-trip as a native column type.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/agentmem/agentmem/internal/repository"
)

// Store is the server Repository implementation. Unlike the embedded
// backend it tolerates many concurrent writers; isolation is left to
// Postgres's MVCC plus the optimistic-concurrency version column.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, registers the pgvector type on every pooled
// connection, and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	agent_id TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	memory_type TEXT NOT NULL,
	scope TEXT NOT NULL,
	level TEXT NOT NULL,
	importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	access_count BIGINT NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ,
	embedding vector,
	expires_at TIMESTAMPTZ,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	created_by_id TEXT NOT NULL DEFAULT '',
	last_updated_by_id TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_memories_user_deleted ON memories(user_id, is_deleted);
CREATE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);

CREATE TABLE IF NOT EXISTS memory_history (
	id TEXT PRIMARY KEY,
	memory_id TEXT NOT NULL,
	event TEXT NOT NULL,
	old_memory TEXT,
	new_memory TEXT,
	actor_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_memory_created ON memory_history(memory_id, created_at);

CREATE TABLE IF NOT EXISTS memory_associations (
	id TEXT PRIMARY KEY,
	from_memory_id TEXT NOT NULL,
	to_memory_id TEXT NOT NULL,
	association_type TEXT NOT NULL,
	strength DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assoc_from ON memory_associations(from_memory_id);
CREATE INDEX IF NOT EXISTS idx_assoc_to ON memory_associations(to_memory_id);
CREATE INDEX IF NOT EXISTS idx_assoc_type ON memory_associations(association_type);

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Memories() repository.MemoryRepository          { return &memoryRepo{q: s.pool} }
func (s *Store) History() repository.HistoryRepository          { return &historyRepo{q: s.pool} }
func (s *Store) Associations() repository.AssociationRepository { return &assocRepo{q: s.pool} }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Stats(ctx context.Context) (repository.Stats, error) {
	var st repository.Stats
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memories WHERE is_deleted = FALSE`).Scan(&st.MemoryCount); err != nil {
		return st, repository.WrapDBError("stats: memories", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memory_history`).Scan(&st.HistoryCount); err != nil {
		return st, repository.WrapDBError("stats: history", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memory_associations`).Scan(&st.AssociationCount); err != nil {
		return st, repository.WrapDBError("stats: associations", err)
	}
	stat := s.pool.Stat()
	st.OpenConnections = int(stat.TotalConns())
	return st, nil
}
