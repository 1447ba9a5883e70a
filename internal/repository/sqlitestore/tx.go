package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

// txHandle implements repository.Tx over an open *sql.Tx, at read-committed
// isolation or stronger (spec §4.1). SQLite's single-writer model makes
// every transaction effectively serializable in practice.
type txHandle struct {
	tx *sql.Tx
	s  *Store
}

func (t *txHandle) Memories() repository.MemoryRepository          { return &memoryRepo{s: t.s, q: t.tx} }
func (t *txHandle) History() repository.HistoryRepository          { return &historyRepo{s: t.s, q: t.tx} }
func (t *txHandle) Associations() repository.AssociationRepository { return &assocRepo{s: t.s, q: t.tx} }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return repository.WrapDBError("with_tx.begin", err)
	}
	if err := fn(ctx, &txHandle{tx: sqlTx, s: s}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return repository.WrapDBError("with_tx.commit", err)
	}
	return nil
}

// ApplyMutations commits every Mutation and its HistoryEntry atomically
// (spec §4.9 step 5): one Memory write (insert/update/soft-delete) paired
// with one history.Append, all inside a single transaction.
func (s *Store) ApplyMutations(ctx context.Context, muts []repository.Mutation) error {
	return s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, mut := range muts {
			if mut.Memory == nil || mut.History == nil {
				return apperr.Internalf("apply_mutations", "mutation missing memory or history entry")
			}
			switch mut.History.Event {
			case types.EventAdd:
				if err := tx.Memories().Create(ctx, mut.Memory); err != nil {
					return err
				}
			case types.EventDelete:
				if err := tx.Memories().SoftDelete(ctx, mut.Memory.ID, mut.ExpectedVersion); err != nil {
					return err
				}
			case types.EventUpdate, types.EventMerge:
				if err := tx.Memories().Update(ctx, mut.Memory, mut.ExpectedVersion); err != nil {
					return err
				}
			case types.EventNoop, types.EventAccess:
				if err := tx.Memories().Update(ctx, mut.Memory, mut.ExpectedVersion); err != nil {
					return err
				}
			default:
				return apperr.Internalf("apply_mutations", "unknown event kind %q", mut.History.Event)
			}
			if err := tx.History().Append(ctx, mut.History); err != nil {
				return err
			}
			for _, assoc := range mut.Associations {
				if err := tx.Associations().Create(ctx, assoc); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
