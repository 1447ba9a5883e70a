// Package sqlitestore implements the embedded RepositoryLayer backend on
// top of modernc.org/sqlite, the same pure-Go, CGO-free SQLite driver the
// teacher codebase registers in cmd/bd/migrate.go.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/agentmem/agentmem/internal/repository"
)

// Store is the embedded Repository implementation. A single writer is the
// operational model (spec §4.1): SQLite only allows one writer transaction
// at a time, which this package accepts rather than fights.
type Store struct {
	db *sql.DB

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt
}

// Open creates (if needed) and opens the embedded database at path,
// applying the schema and enabling WAL mode when requested.
func Open(ctx context.Context, path string, enableWAL bool) (*Store, error) {
	dsn := path
	if enableWAL {
		dsn = path + "?_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	// SQLite has one writer; a single connection avoids SQLITE_BUSY churn
	// under the cooperative-task concurrency model of spec §5.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, stmts: make(map[string]*sql.Stmt)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
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
	importance REAL NOT NULL DEFAULT 0.5,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at DATETIME,
	embedding BLOB,
	expires_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	created_by_id TEXT NOT NULL DEFAULT '',
	last_updated_by_id TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}'
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
	created_at DATETIME NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_memory_created ON memory_history(memory_id, created_at);

CREATE TABLE IF NOT EXISTS memory_associations (
	id TEXT PRIMARY KEY,
	from_memory_id TEXT NOT NULL,
	to_memory_id TEXT NOT NULL,
	association_type TEXT NOT NULL,
	strength REAL NOT NULL,
	confidence REAL NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assoc_from ON memory_associations(from_memory_id);
CREATE INDEX IF NOT EXISTS idx_assoc_to ON memory_associations(to_memory_id);
CREATE INDEX IF NOT EXISTS idx_assoc_type ON memory_associations(association_type);

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// migrate applies the schema and clears the statement cache, since cached
// plans may reference columns a migration changed (spec §4.1 "the cache is
// cleared on schema migration").
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	s.clearStatementCache()
	return nil
}

// prepared returns a cached *sql.Stmt for query, preparing and caching it
// on first use, keyed by SQL text. No repository method calls it: queries
// run directly on the *sql.DB or *sql.Tx, so the cache stays empty.
func (s *Store) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

func (s *Store) clearStatementCache() {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	for _, stmt := range s.stmts {
		_ = stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
}

func (s *Store) Memories() repository.MemoryRepository         { return &memoryRepo{s: s, q: s.db} }
func (s *Store) History() repository.HistoryRepository         { return &historyRepo{s: s, q: s.db} }
func (s *Store) Associations() repository.AssociationRepository { return &assocRepo{s: s, q: s.db} }

func (s *Store) Close() error {
	s.clearStatementCache()
	return s.db.Close()
}

func (s *Store) Stats(ctx context.Context) (repository.Stats, error) {
	var st repository.Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE is_deleted = 0`)
	if err := row.Scan(&st.MemoryCount); err != nil {
		return st, repository.WrapDBError("stats: memories", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_history`)
	if err := row.Scan(&st.HistoryCount); err != nil {
		return st, repository.WrapDBError("stats: history", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_associations`)
	if err := row.Scan(&st.AssociationCount); err != nil {
		return st, repository.WrapDBError("stats: associations", err)
	}
	st.OpenConnections = s.db.Stats().OpenConnections
	return st, nil
}
