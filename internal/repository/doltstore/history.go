package doltstore

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

type historyRepo struct {
	q queryer
}

func (r *historyRepo) Append(ctx context.Context, h *types.HistoryEntry) error {
	if h.ID == "" {
		h.ID = types.NewID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO memory_history
		(id, memory_id, event, old_memory, new_memory, actor_id, created_at, reason)
		VALUES (?,?,?,?,?,?,?,?)`,
		h.ID, h.MemoryID, h.Event, marshalMemorySnapshot(h.OldMemory), marshalMemorySnapshot(h.NewMemory),
		h.ActorID, h.CreatedAt, h.Reason,
	)
	return repository.WrapDBError("history.append", err)
}

func (r *historyRepo) ListByMemory(ctx context.Context, memoryID string, page types.Page) ([]*types.HistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, memory_id, event, old_memory, new_memory, actor_id, created_at, reason
		FROM memory_history WHERE memory_id = ? ORDER BY created_at ASC LIMIT ? OFFSET ?`,
		memoryID, limitOrDefault(page.Limit), page.Offset)
	if err != nil {
		return nil, repository.WrapDBError("history.list_by_memory", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.HistoryEntry
	for rows.Next() {
		var h types.HistoryEntry
		var oldJSON, newJSON string
		if err := rows.Scan(&h.ID, &h.MemoryID, &h.Event, &oldJSON, &newJSON, &h.ActorID, &h.CreatedAt, &h.Reason); err != nil {
			return nil, repository.WrapDBError("history.list_by_memory: scan", err)
		}
		h.OldMemory = unmarshalMemorySnapshot(oldJSON)
		h.NewMemory = unmarshalMemorySnapshot(newJSON)
		out = append(out, &h)
	}
	return out, repository.WrapDBError("history.list_by_memory: iterate", rows.Err())
}
