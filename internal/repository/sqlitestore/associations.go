package sqlitestore

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

type assocRepo struct {
	s *Store
	q queryer
}

const assocColumns = `id, from_memory_id, to_memory_id, association_type, strength, confidence, metadata, created_at, updated_at`

func scanAssociation(row interface{ Scan(...any) error }) (*types.Association, error) {
	var a types.Association
	var metadata string
	err := row.Scan(&a.ID, &a.FromMemoryID, &a.ToMemoryID, &a.AssociationType, &a.Strength, &a.Confidence,
		&metadata, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Metadata = decodeMetadata(metadata)
	return &a, nil
}

func (r *assocRepo) Create(ctx context.Context, a *types.Association) error {
	if a.ID == "" {
		a.ID = types.NewID()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := r.q.ExecContext(ctx, `INSERT INTO memory_associations (`+assocColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.FromMemoryID, a.ToMemoryID, a.AssociationType, a.Strength, a.Confidence,
		encodeMetadata(a.Metadata), a.CreatedAt, a.UpdatedAt,
	)
	return repository.WrapDBError("associations.create", err)
}

func (r *assocRepo) FindByID(ctx context.Context, id string) (*types.Association, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+assocColumns+` FROM memory_associations WHERE id = ?`, id)
	a, err := scanAssociation(row)
	if err != nil {
		return nil, repository.WrapDBError("associations.find_by_id", err)
	}
	return a, nil
}

func (r *assocRepo) ListFrom(ctx context.Context, fromMemoryID string, page types.Page) ([]*types.Association, error) {
	return r.list(ctx, "from_memory_id", fromMemoryID, page)
}

func (r *assocRepo) ListTo(ctx context.Context, toMemoryID string, page types.Page) ([]*types.Association, error) {
	return r.list(ctx, "to_memory_id", toMemoryID, page)
}

func (r *assocRepo) list(ctx context.Context, column, id string, page types.Page) ([]*types.Association, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+assocColumns+` FROM memory_associations WHERE `+column+` = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, id, limitOrDefault(page.Limit), page.Offset)
	if err != nil {
		return nil, repository.WrapDBError("associations.list", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*types.Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, repository.WrapDBError("associations.list: scan", err)
		}
		out = append(out, a)
	}
	return out, repository.WrapDBError("associations.list: iterate", rows.Err())
}

func (r *assocRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM memory_associations WHERE id = ?`, id)
	return repository.WrapDBError("associations.delete", err)
}

func (r *assocRepo) BulkDeleteByParent(ctx context.Context, memoryID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM memory_associations WHERE from_memory_id = ? OR to_memory_id = ?`,
		memoryID, memoryID)
	if err != nil {
		return 0, repository.WrapDBError("associations.bulk_delete_by_parent", err)
	}
	n, err := res.RowsAffected()
	return n, repository.WrapDBError("associations.bulk_delete_by_parent: rows_affected", err)
}
