// Package doltstore implements an optional alternate server RepositoryLayer
// backend on top of Dolt's MySQL-protocol server mode, reached through
// github.com/go-sql-driver/mysql the same way the teacher's server-mode
// dolt backend does (internal/storage/dolt/store.go). Unlike the teacher,
// this backend never opens an embedded (CGO) connection: spec §6 fixes the
// Server deployment's relational store to PostgreSQL, so doltstore is an
// additional option behind the same Repository interface, connected to in
// server mode only.
package doltstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/retry"
)

// Store is the Dolt server-mode Repository implementation.
type Store struct {
	db       *sql.DB
	retryCfg retry.Config

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt
}

// Open connects to a running `dolt sql-server` at dsn (a MySQL-protocol
// DSN, e.g. "root@tcp(127.0.0.1:3307)/agentmem?parseTime=true") and applies
// the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("doltstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("doltstore: ping: %w", err)
	}
	s := &Store{db: db, retryCfg: retry.DefaultConfig(), stmts: make(map[string]*sql.Stmt)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id VARCHAR(64) PRIMARY KEY,
	organization_id VARCHAR(255) NOT NULL DEFAULT '',
	user_id VARCHAR(255) NOT NULL,
	agent_id VARCHAR(255) NOT NULL DEFAULT '',
	session_id VARCHAR(255) NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	content_hash VARCHAR(128) NOT NULL,
	memory_type VARCHAR(32) NOT NULL,
	scope VARCHAR(32) NOT NULL,
	level VARCHAR(32) NOT NULL,
	importance DOUBLE NOT NULL DEFAULT 0.5,
	access_count BIGINT NOT NULL DEFAULT 0,
	last_accessed_at DATETIME NULL,
	embedding LONGBLOB,
	expires_at DATETIME NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	is_deleted TINYINT NOT NULL DEFAULT 0,
	created_by_id VARCHAR(255) NOT NULL DEFAULT '',
	last_updated_by_id VARCHAR(255) NOT NULL DEFAULT '',
	metadata JSON NOT NULL,
	INDEX idx_memories_user_deleted (user_id, is_deleted),
	INDEX idx_memories_content_hash (content_hash),
	INDEX idx_memories_type (memory_type),
	INDEX idx_memories_expires (expires_at)
);

CREATE TABLE IF NOT EXISTS memory_history (
	id VARCHAR(64) PRIMARY KEY,
	memory_id VARCHAR(64) NOT NULL,
	event VARCHAR(32) NOT NULL,
	old_memory LONGTEXT,
	new_memory LONGTEXT,
	actor_id VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	reason TEXT NOT NULL,
	INDEX idx_history_memory_created (memory_id, created_at)
);

CREATE TABLE IF NOT EXISTS memory_associations (
	id VARCHAR(64) PRIMARY KEY,
	from_memory_id VARCHAR(64) NOT NULL,
	to_memory_id VARCHAR(64) NOT NULL,
	association_type VARCHAR(32) NOT NULL,
	strength DOUBLE NOT NULL,
	confidence DOUBLE NOT NULL,
	metadata JSON NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	INDEX idx_assoc_from (from_memory_id),
	INDEX idx_assoc_to (to_memory_id),
	INDEX idx_assoc_type (association_type)
);

CREATE TABLE IF NOT EXISTS config (
	` + "`key`" + ` VARCHAR(255) PRIMARY KEY,
	value TEXT NOT NULL
);
`

// migrate splits the schema into individual statements: Dolt's MySQL
// front end, unlike SQLite and pgx's simple-query protocol, rejects a
// single multi-statement Exec by default.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("doltstore: migrate: %w", err)
		}
	}
	s.clearStatementCache()
	return nil
}

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

func (s *Store) Memories() repository.MemoryRepository          { return &memoryRepo{q: &retryingQueryer{db: s.db, cfg: s.retryCfg}} }
func (s *Store) History() repository.HistoryRepository          { return &historyRepo{q: &retryingQueryer{db: s.db, cfg: s.retryCfg}} }
func (s *Store) Associations() repository.AssociationRepository { return &assocRepo{q: &retryingQueryer{db: s.db, cfg: s.retryCfg}} }

func (s *Store) Close() error {
	s.clearStatementCache()
	return s.db.Close()
}

func (s *Store) Stats(ctx context.Context) (repository.Stats, error) {
	var st repository.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE is_deleted = 0`).Scan(&st.MemoryCount); err != nil {
		return st, repository.WrapDBError("stats: memories", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_history`).Scan(&st.HistoryCount); err != nil {
		return st, repository.WrapDBError("stats: history", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_associations`).Scan(&st.AssociationCount); err != nil {
		return st, repository.WrapDBError("stats: associations", err)
	}
	st.OpenConnections = s.db.Stats().OpenConnections
	return st, nil
}
