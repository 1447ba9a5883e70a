package doltstore

import (
	"context"
	"database/sql"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

// txHandle implements repository.Tx over an open *sql.Tx. Statements inside
// a transaction are not retried: a transient error here invalidates the
// whole transaction, so the right response is to roll back and let the
// caller retry the entire ApplyMutations batch, not one statement in it.
type txHandle struct {
	tx *sql.Tx
}

func (t *txHandle) Memories() repository.MemoryRepository          { return &memoryRepo{q: t.tx} }
func (t *txHandle) History() repository.HistoryRepository          { return &historyRepo{q: t.tx} }
func (t *txHandle) Associations() repository.AssociationRepository { return &assocRepo{q: t.tx} }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return repository.WrapDBError("with_tx.begin", err)
	}
	if err := fn(ctx, &txHandle{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return repository.WrapDBError("with_tx.commit", err)
	}
	return nil
}

// ApplyMutations commits every Mutation and its HistoryEntry atomically
// (spec §4.9 step 5), identically to the embedded and pgstore backends.
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
