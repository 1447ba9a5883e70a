package doltstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

type memoryRepo struct {
	q queryer
}

const memoryColumns = `id, organization_id, user_id, agent_id, session_id, content, content_hash,
	memory_type, scope, level, importance, access_count, last_accessed_at, embedding,
	expires_at, version, created_at, updated_at, is_deleted, created_by_id, last_updated_by_id, metadata`

func scanMemory(row interface{ Scan(...any) error }) (*types.Memory, error) {
	var m types.Memory
	var lastAccessed sql.NullTime
	var expiresAt sql.NullTime
	var embedding []byte
	var metadata string
	var isDeleted int
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.AgentID, &m.SessionID, &m.Content, &m.ContentHash,
		&m.MemoryType, &m.Scope, &m.Level, &m.Importance, &m.AccessCount, &lastAccessed, &embedding,
		&expiresAt, &m.Version, &m.CreatedAt, &m.UpdatedAt, &isDeleted, &m.CreatedByID, &m.LastUpdatedByID, &metadata,
	)
	if err != nil {
		return nil, err
	}
	if lastAccessed.Valid {
		m.LastAccessedAt = lastAccessed.Time
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		m.ExpiresAt = &t
	}
	m.Embedding = decodeEmbedding(embedding)
	m.Metadata = decodeMetadata(metadata)
	m.IsDeleted = isDeleted != 0
	return &m, nil
}

func (r *memoryRepo) Create(ctx context.Context, m *types.Memory) error {
	if m.ID == "" {
		m.ID = types.NewID()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Version == 0 {
		m.Version = 1
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO memories (`+memoryColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.OrganizationID, m.UserID, m.AgentID, m.SessionID, m.Content, m.ContentHash,
		m.MemoryType, m.Scope, m.Level, m.Importance, m.AccessCount, nullTime(nonZero(m.LastAccessedAt)), encodeEmbedding(m.Embedding),
		nullTime(m.ExpiresAt), m.Version, m.CreatedAt, m.UpdatedAt, boolToInt(m.IsDeleted), m.CreatedByID, m.LastUpdatedByID, encodeMetadata(m.Metadata),
	)
	return repository.WrapDBError("memories.create", err)
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *memoryRepo) FindByID(ctx context.Context, id string) (*types.Memory, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, repository.WrapDBError("memories.find_by_id", err)
	}
	return m, nil
}

// BatchFindByIDs coalesces into a single IN (...) statement (spec §4.1);
// MySQL-protocol servers, Dolt included, support IN natively.
func (r *memoryRepo) BatchFindByIDs(ctx context.Context, ids []string) ([]*types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repository.WrapDBError("memories.batch_find_by_ids", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, repository.WrapDBError("memories.batch_find_by_ids: scan", err)
		}
		out = append(out, m)
	}
	return out, repository.WrapDBError("memories.batch_find_by_ids: iterate", rows.Err())
}

func (r *memoryRepo) FindByContentHash(ctx context.Context, userID, contentHash string) (*types.Memory, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories
		WHERE user_id = ? AND content_hash = ? AND is_deleted = 0 LIMIT 1`, userID, contentHash)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, repository.WrapDBError("memories.find_by_content_hash", err)
	}
	return m, nil
}

// Update verifies expectedVersion before writing and bumps Version
// atomically in the same statement (spec §4.1, §8 concurrency property).
func (r *memoryRepo) Update(ctx context.Context, m *types.Memory, expectedVersion int64) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `UPDATE memories SET
		content = ?, content_hash = ?, memory_type = ?, scope = ?, level = ?, importance = ?,
		access_count = ?, last_accessed_at = ?, embedding = ?, expires_at = ?, version = version + 1,
		updated_at = ?, is_deleted = ?, last_updated_by_id = ?, metadata = ?
		WHERE id = ? AND version = ?`,
		m.Content, m.ContentHash, m.MemoryType, m.Scope, m.Level, m.Importance,
		m.AccessCount, nullTime(nonZero(m.LastAccessedAt)), encodeEmbedding(m.Embedding), nullTime(m.ExpiresAt),
		m.UpdatedAt, boolToInt(m.IsDeleted), m.LastUpdatedByID, encodeMetadata(m.Metadata),
		m.ID, expectedVersion,
	)
	if err != nil {
		return repository.WrapDBError("memories.update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repository.WrapDBError("memories.update: rows_affected", err)
	}
	if n == 0 {
		return apperr.Conflictf("memories.update", "version mismatch for memory %s (expected %d)", m.ID, expectedVersion).
			WithDetail("memory_id", m.ID).WithDetail("expected_version", expectedVersion)
	}
	m.Version = expectedVersion + 1
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id string, expectedVersion int64) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `UPDATE memories SET is_deleted = 1, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`, now, id, expectedVersion)
	if err != nil {
		return repository.WrapDBError("memories.soft_delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repository.WrapDBError("memories.soft_delete: rows_affected", err)
	}
	if n == 0 {
		return apperr.Conflictf("memories.soft_delete", "version mismatch for memory %s (expected %d)", id, expectedVersion).
			WithDetail("memory_id", id).WithDetail("expected_version", expectedVersion)
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter types.MemoryFilter, page types.Page) ([]*types.Memory, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, memoryColumns, where)
	args = append(args, limitOrDefault(page.Limit), page.Offset)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repository.WrapDBError("memories.list", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, repository.WrapDBError("memories.list: scan", err)
		}
		out = append(out, m)
	}
	return out, repository.WrapDBError("memories.list: iterate", rows.Err())
}

// SearchLexical performs a tokenized case-insensitive LIKE match (spec
// §4.1); Dolt's server mode does not expose MATCH ... AGAINST, so this
// backend uses the same portable LIKE strategy as the embedded backend.
func (r *memoryRepo) SearchLexical(ctx context.Context, query string, filter types.MemoryFilter, page types.Page) ([]types.ScoredMemory, error) {
	where, args := buildWhere(filter)
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(tokens) == 0 {
		return nil, nil
	}
	var likeClauses []string
	for _, tok := range tokens {
		likeClauses = append(likeClauses, `LOWER(content) LIKE ?`)
		args = append(args, "%"+tok+"%")
	}
	sqlQuery := fmt.Sprintf(`SELECT %s FROM memories WHERE %s AND (%s) ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		memoryColumns, where, strings.Join(likeClauses, " OR "))
	args = append(args, limitOrDefault(page.Limit), page.Offset)
	rows, err := r.q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, repository.WrapDBError("memories.search_lexical", err)
	}
	defer func() { _ = rows.Close() }()
	var out []types.ScoredMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, repository.WrapDBError("memories.search_lexical: scan", err)
		}
		out = append(out, types.ScoredMemory{
			Memory:        *m,
			FulltextScore: tokenMatchScore(strings.ToLower(m.Content), tokens),
		})
	}
	return out, repository.WrapDBError("memories.search_lexical: iterate", rows.Err())
}

func tokenMatchScore(content string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(content, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

func (r *memoryRepo) BulkDeleteByParent(ctx context.Context, parentID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE memories SET is_deleted = 1, updated_at = ?
		WHERE (agent_id = ? OR user_id = ? OR session_id = ?) AND is_deleted = 0`,
		time.Now().UTC(), parentID, parentID, parentID)
	if err != nil {
		return 0, repository.WrapDBError("memories.bulk_delete_by_parent", err)
	}
	n, err := res.RowsAffected()
	return n, repository.WrapDBError("memories.bulk_delete_by_parent: rows_affected", err)
}

func (r *memoryRepo) SweepExpiredWorking(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM memories WHERE memory_type = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		types.Working, now)
	if err != nil {
		return 0, repository.WrapDBError("memories.sweep_expired_working", err)
	}
	n, err := res.RowsAffected()
	return n, repository.WrapDBError("memories.sweep_expired_working: rows_affected", err)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func buildWhere(filter types.MemoryFilter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if !filter.IncludeDeleted {
		clauses = append(clauses, "is_deleted = 0")
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.AgentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if filter.OrganizationID != "" {
		clauses = append(clauses, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.MemoryType != nil {
		clauses = append(clauses, "memory_type = ?")
		args = append(args, *filter.MemoryType)
	}
	if filter.Scope != nil {
		clauses = append(clauses, "scope = ?")
		args = append(args, *filter.Scope)
	}
	if filter.MinImportance != nil {
		clauses = append(clauses, "importance >= ?")
		args = append(args, *filter.MinImportance)
	}
	if filter.MinAccessCount != nil {
		clauses = append(clauses, "access_count >= ?")
		args = append(args, *filter.MinAccessCount)
	}
	if filter.MaxAgeDays != nil {
		clauses = append(clauses, "created_at >= ?")
		cutoff := time.Now().UTC().Add(-time.Duration(*filter.MaxAgeDays * float64(24*time.Hour)))
		args = append(args, cutoff)
	}
	return strings.Join(clauses, " AND "), args
}
