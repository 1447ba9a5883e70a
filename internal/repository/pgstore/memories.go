package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	pgvec "github.com/pgvector/pgvector-go"

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
	var lastAccessed *time.Time
	var embedding *pgvec.Vector
	var metadata []byte
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.AgentID, &m.SessionID, &m.Content, &m.ContentHash,
		&m.MemoryType, &m.Scope, &m.Level, &m.Importance, &m.AccessCount, &lastAccessed, &embedding,
		&m.ExpiresAt, &m.Version, &m.CreatedAt, &m.UpdatedAt, &m.IsDeleted, &m.CreatedByID, &m.LastUpdatedByID, &metadata,
	)
	if err != nil {
		return nil, err
	}
	if lastAccessed != nil {
		m.LastAccessedAt = *lastAccessed
	}
	m.Embedding = decodeEmbedding(embedding)
	m.Metadata = decodeMetadata(metadata)
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
	_, err := r.q.Exec(ctx, `INSERT INTO memories (`+memoryColumns+`) VALUES
		($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		m.ID, m.OrganizationID, m.UserID, m.AgentID, m.SessionID, m.Content, m.ContentHash,
		m.MemoryType, m.Scope, m.Level, m.Importance, m.AccessCount, nonZero(m.LastAccessedAt), encodeEmbedding(m.Embedding),
		m.ExpiresAt, m.Version, m.CreatedAt, m.UpdatedAt, m.IsDeleted, m.CreatedByID, m.LastUpdatedByID, encodeMetadata(m.Metadata),
	)
	return repository.WrapDBError("memories.create", err)
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *memoryRepo) FindByID(ctx context.Context, id string) (*types.Memory, error) {
	row := r.q.QueryRow(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, repository.WrapDBError("memories.find_by_id", err)
	}
	return m, nil
}

// BatchFindByIDs coalesces into a single = ANY($1) statement, the pgx
// idiom for passing a slice bound parameter (spec §4.1 batch-read
// coalescing requirement).
func (r *memoryRepo) BatchFindByIDs(ctx context.Context, ids []string) ([]*types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, repository.WrapDBError("memories.batch_find_by_ids", err)
	}
	defer rows.Close()
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
	row := r.q.QueryRow(ctx, `SELECT `+memoryColumns+` FROM memories
		WHERE user_id = $1 AND content_hash = $2 AND is_deleted = FALSE LIMIT 1`, userID, contentHash)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	tag, err := r.q.Exec(ctx, `UPDATE memories SET
		content = $1, content_hash = $2, memory_type = $3, scope = $4, level = $5, importance = $6,
		access_count = $7, last_accessed_at = $8, embedding = $9, expires_at = $10, version = version + 1,
		updated_at = $11, is_deleted = $12, last_updated_by_id = $13, metadata = $14
		WHERE id = $15 AND version = $16`,
		m.Content, m.ContentHash, m.MemoryType, m.Scope, m.Level, m.Importance,
		m.AccessCount, nonZero(m.LastAccessedAt), encodeEmbedding(m.Embedding), m.ExpiresAt,
		m.UpdatedAt, m.IsDeleted, m.LastUpdatedByID, encodeMetadata(m.Metadata),
		m.ID, expectedVersion,
	)
	if err != nil {
		return repository.WrapDBError("memories.update", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflictf("memories.update", "version mismatch for memory %s (expected %d)", m.ID, expectedVersion).
			WithDetail("memory_id", m.ID).WithDetail("expected_version", expectedVersion)
	}
	m.Version = expectedVersion + 1
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id string, expectedVersion int64) error {
	now := time.Now().UTC()
	tag, err := r.q.Exec(ctx, `UPDATE memories SET is_deleted = TRUE, updated_at = $1, version = version + 1
		WHERE id = $2 AND version = $3`, now, id, expectedVersion)
	if err != nil {
		return repository.WrapDBError("memories.soft_delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflictf("memories.soft_delete", "version mismatch for memory %s (expected %d)", id, expectedVersion).
			WithDetail("memory_id", id).WithDetail("expected_version", expectedVersion)
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter types.MemoryFilter, page types.Page) ([]*types.Memory, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM memories WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		memoryColumns, where, placeholder(len(args)+1), placeholder(len(args)+2))
	args = append(args, limitOrDefault(page.Limit), page.Offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, repository.WrapDBError("memories.list", err)
	}
	defer rows.Close()
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

// SearchLexical uses Postgres's trigram-friendly ILIKE matching per token
// (spec §4.1); full-text (tsvector) ranking is left to the
// hybrid-search layer's dense pass, mirrored by the embedded backend's
// equivalent LIKE-based implementation.
func (r *memoryRepo) SearchLexical(ctx context.Context, query string, filter types.MemoryFilter, page types.Page) ([]types.ScoredMemory, error) {
	where, args := buildWhere(filter)
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(tokens) == 0 {
		return nil, nil
	}
	var likeClauses []string
	for _, tok := range tokens {
		args = append(args, "%"+tok+"%")
		likeClauses = append(likeClauses, fmt.Sprintf("content ILIKE %s", placeholder(len(args))))
	}
	args = append(args, limitOrDefault(page.Limit), page.Offset)
	sqlQuery := fmt.Sprintf(`SELECT %s FROM memories WHERE %s AND (%s) ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		memoryColumns, where, strings.Join(likeClauses, " OR "), placeholder(len(args)-1), placeholder(len(args)))
	rows, err := r.q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, repository.WrapDBError("memories.search_lexical", err)
	}
	defer rows.Close()
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
	tag, err := r.q.Exec(ctx, `UPDATE memories SET is_deleted = TRUE, updated_at = $1
		WHERE (agent_id = $2 OR user_id = $2 OR session_id = $2) AND is_deleted = FALSE`,
		time.Now().UTC(), parentID)
	if err != nil {
		return 0, repository.WrapDBError("memories.bulk_delete_by_parent", err)
	}
	return tag.RowsAffected(), nil
}

func (r *memoryRepo) SweepExpiredWorking(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM memories WHERE memory_type = $1 AND expires_at IS NOT NULL AND expires_at <= $2`,
		types.Working, now)
	if err != nil {
		return 0, repository.WrapDBError("memories.sweep_expired_working", err)
	}
	return tag.RowsAffected(), nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

// placeholder renders a 1-based Postgres bind parameter.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func buildWhere(filter types.MemoryFilter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if !filter.IncludeDeleted {
		clauses = append(clauses, "is_deleted = FALSE")
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, "user_id = "+placeholder(len(args)))
	}
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		clauses = append(clauses, "agent_id = "+placeholder(len(args)))
	}
	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		clauses = append(clauses, "organization_id = "+placeholder(len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		clauses = append(clauses, "session_id = "+placeholder(len(args)))
	}
	if filter.MemoryType != nil {
		args = append(args, *filter.MemoryType)
		clauses = append(clauses, "memory_type = "+placeholder(len(args)))
	}
	if filter.Scope != nil {
		args = append(args, *filter.Scope)
		clauses = append(clauses, "scope = "+placeholder(len(args)))
	}
	if filter.MinImportance != nil {
		args = append(args, *filter.MinImportance)
		clauses = append(clauses, "importance >= "+placeholder(len(args)))
	}
	if filter.MinAccessCount != nil {
		args = append(args, *filter.MinAccessCount)
		clauses = append(clauses, "access_count >= "+placeholder(len(args)))
	}
	if filter.MaxAgeDays != nil {
		cutoff := time.Now().UTC().Add(-time.Duration(*filter.MaxAgeDays * float64(24*time.Hour)))
		args = append(args, cutoff)
		clauses = append(clauses, "created_at >= "+placeholder(len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
