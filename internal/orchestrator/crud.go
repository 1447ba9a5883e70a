package orchestrator

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

// Get returns a single memory by id, regardless of scope.
func (o *Orchestrator) Get(ctx context.Context, id string) (*types.Memory, error) {
	return o.Repository.Memories().FindByID(ctx, id)
}

// GetAll lists memories matching filter, paginated.
func (o *Orchestrator) GetAll(ctx context.Context, filter types.MemoryFilter, page types.Page) ([]*types.Memory, error) {
	return o.Repository.Memories().List(ctx, filter, page)
}

// History returns the HistoryEntry timeline for one memory.
func (o *Orchestrator) History(ctx context.Context, memoryID string, page types.Page) ([]*types.HistoryEntry, error) {
	return o.Repository.History().ListByMemory(ctx, memoryID, page)
}

// Update performs a direct, explicit content edit (bypassing extraction
// and decision-making, unlike Add) — the spec §6 `update(id, content)`
// surface used by callers that already know exactly which memory and
// content they mean.
//
// A version Conflict (another writer won the race between the FindByID
// above and the commit below) gets one re-read-and-retry cycle: Update
// re-reads the memory, reapplies content against the fresh version, and
// commits again. A second Conflict is surfaced as-is; its Details carry
// the memory_id and the expected_version that failed, not the version
// currently stored.
func (o *Orchestrator) Update(ctx context.Context, id, content string, actorID string) (*types.Memory, error) {
	if content == "" {
		return nil, apperr.Validationf("orchestrator.update", "content must not be empty")
	}
	existing, err := o.Repository.Memories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	mem, err := o.applyUpdate(ctx, existing, content, actorID)
	if err == nil || !apperr.Is(err, apperr.Conflict) {
		return mem, err
	}

	fresh, rerr := o.Repository.Memories().FindByID(ctx, id)
	if rerr != nil {
		return nil, rerr
	}
	return o.applyUpdate(ctx, fresh, content, actorID)
}

func (o *Orchestrator) applyUpdate(ctx context.Context, existing *types.Memory, content, actorID string) (*types.Memory, error) {
	now := time.Now().UTC()
	old := *existing
	existing.Content = content
	existing.ContentHash = types.ContentHash(content)
	existing.UpdatedAt = now
	existing.LastUpdatedByID = actorID
	if vec, _ := o.embed(ctx, content); vec != nil {
		existing.Embedding = vec
	}

	mut := repository.Mutation{
		Memory: existing,
		History: &types.HistoryEntry{
			ID: types.NewID(), MemoryID: existing.ID, Event: types.EventUpdate,
			OldMemory: &old, NewMemory: existing, ActorID: actorID, CreatedAt: now,
		},
		ExpectedVersion: old.Version,
	}
	if err := o.commitOnce(ctx, []repository.Mutation{mut}); err != nil {
		return nil, err
	}
	o.postCommitUpsert(ctx, existing)
	o.invalidateScope(existing.UserID)
	return existing, nil
}

// Delete soft-deletes one memory (spec §6 `delete(id)`). Mirrors Update's
// Conflict handling: one re-read-and-retry cycle, then surfaced as-is.
func (o *Orchestrator) Delete(ctx context.Context, id, actorID string) error {
	existing, err := o.Repository.Memories().FindByID(ctx, id)
	if err != nil {
		return err
	}
	err = o.applyDelete(ctx, existing, actorID)
	if err == nil || !apperr.Is(err, apperr.Conflict) {
		return err
	}

	fresh, rerr := o.Repository.Memories().FindByID(ctx, id)
	if rerr != nil {
		return rerr
	}
	return o.applyDelete(ctx, fresh, actorID)
}

func (o *Orchestrator) applyDelete(ctx context.Context, existing *types.Memory, actorID string) error {
	now := time.Now().UTC()
	old := *existing
	existing.UpdatedAt = now
	existing.IsDeleted = true

	mut := repository.Mutation{
		Memory: existing,
		History: &types.HistoryEntry{
			ID: types.NewID(), MemoryID: existing.ID, Event: types.EventDelete,
			OldMemory: &old, NewMemory: existing, ActorID: actorID, CreatedAt: now,
		},
		ExpectedVersion: old.Version,
	}
	if err := o.commitOnce(ctx, []repository.Mutation{mut}); err != nil {
		return err
	}
	if o.VectorIndex != nil {
		if err := o.VectorIndex.Delete(ctx, existing.ID); err != nil {
			o.Logger.WarnContext(ctx, "vector delete failed, deferring to reconciler", "memory_id", existing.ID, "error", err)
			if o.Reconciler != nil {
				o.Reconciler.EnqueueDelete(existing.ID)
			}
		}
	}
	o.invalidateScope(existing.UserID)
	return nil
}

// Reset soft-deletes every live memory whose user, agent, or session id
// equals parentID — spec §6 `reset(scope)`, a bulk operation typically
// used in tests or account-closure flows. History entries, associations,
// and vector-index entries are left in place.
func (o *Orchestrator) Reset(ctx context.Context, parentID string) (int64, error) {
	if parentID == "" {
		return 0, apperr.Validationf("orchestrator.reset", "parentID is required")
	}
	n, err := o.Repository.Memories().BulkDeleteByParent(ctx, parentID)
	if err != nil {
		return 0, err
	}
	o.invalidateScope(parentID)
	return n, nil
}
