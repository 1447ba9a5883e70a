package orchestrator

import (
	"context"
	"time"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/types"
)

// buildMutations turns reconciled decisions into the repository.Mutation
// batch for a single ApplyMutations call (spec §4.9 step 5: "the entire
// batch commits in one transaction"). A decision that targets a memory
// no longer present (e.g. concurrently deleted) is dropped with a
// warning rather than failing the whole batch.
func (o *Orchestrator) buildMutations(
	ctx context.Context,
	decisions []types.Decision,
	embeddings map[int][]float32,
	facts []types.Fact,
	opts AddOptions,
	now time.Time,
) ([]repository.Mutation, []Outcome, error) {
	factIndex := make(map[string]int, len(facts))
	for i, f := range facts {
		factIndex[f.Content] = i
	}

	muts := make([]repository.Mutation, 0, len(decisions))
	outcomes := make([]Outcome, 0, len(decisions))

	for _, d := range decisions {
		var vec []float32
		if i, ok := factIndex[d.Fact.Content]; ok {
			vec = embeddings[i]
		}

		switch d.Action {
		case types.ActionAdd:
			mem := o.newMemory(d.Fact.Content, opts, vec, now)
			muts = append(muts, repository.Mutation{
				Memory: mem,
				History: &types.HistoryEntry{
					ID: types.NewID(), MemoryID: mem.ID, Event: types.EventAdd,
					NewMemory: mem, ActorID: opts.ActorID, CreatedAt: now,
				},
			})
			outcomes = append(outcomes, Outcome{Event: types.EventAdd, ID: mem.ID, Memory: mem})

		case types.ActionUpdate:
			existing, err := o.Repository.Memories().FindByID(ctx, d.TargetID)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					continue
				}
				return nil, nil, err
			}
			old := *existing
			existing.Content = d.Fact.Content
			existing.ContentHash = types.ContentHash(d.Fact.Content)
			existing.UpdatedAt = now
			existing.LastUpdatedByID = opts.ActorID
			if vec != nil {
				existing.Embedding = vec
			}
			if d.Fact.ImportanceHint != nil {
				existing.Importance = *d.Fact.ImportanceHint
			}
			muts = append(muts, repository.Mutation{
				Memory: existing,
				History: &types.HistoryEntry{
					ID: types.NewID(), MemoryID: existing.ID, Event: types.EventUpdate,
					OldMemory: &old, NewMemory: existing, ActorID: opts.ActorID, CreatedAt: now,
				},
				ExpectedVersion: old.Version,
			})
			outcomes = append(outcomes, Outcome{Event: types.EventUpdate, ID: existing.ID, Memory: existing})

		case types.ActionMerge:
			existing, err := o.Repository.Memories().FindByID(ctx, d.TargetID)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					continue
				}
				return nil, nil, err
			}
			old := *existing
			content := d.MergedContent
			if content == "" {
				content = d.Fact.Content
			}
			existing.Content = content
			existing.ContentHash = types.ContentHash(content)
			existing.UpdatedAt = now
			existing.LastUpdatedByID = opts.ActorID
			if vec != nil {
				existing.Embedding = vec
			}
			assocs := make([]*types.Association, 0, len(d.MergeTargetIDs))
			for _, absorbedID := range d.MergeTargetIDs {
				if absorbedID == existing.ID {
					continue
				}
				assocs = append(assocs, &types.Association{
					ID: types.NewID(), FromMemoryID: existing.ID, ToMemoryID: absorbedID,
					AssociationType: types.AssocSimilar, Strength: d.Confidence, Confidence: d.Confidence,
					CreatedAt: now, UpdatedAt: now,
				})
			}
			muts = append(muts, repository.Mutation{
				Memory: existing,
				History: &types.HistoryEntry{
					ID: types.NewID(), MemoryID: existing.ID, Event: types.EventMerge,
					OldMemory: &old, NewMemory: existing, ActorID: opts.ActorID, CreatedAt: now,
				},
				Associations:    assocs,
				ExpectedVersion: old.Version,
			})
			outcomes = append(outcomes, Outcome{Event: types.EventMerge, ID: existing.ID, Memory: existing})

			for _, absorbedID := range d.MergeTargetIDs {
				if absorbedID == existing.ID {
					continue
				}
				absorbed, err := o.Repository.Memories().FindByID(ctx, absorbedID)
				if err != nil {
					if apperr.Is(err, apperr.NotFound) {
						continue
					}
					return nil, nil, err
				}
				oldAbsorbed := *absorbed
				absorbed.UpdatedAt = now
				absorbed.LastUpdatedByID = opts.ActorID
				muts = append(muts, repository.Mutation{
					Memory: absorbed,
					History: &types.HistoryEntry{
						ID: types.NewID(), MemoryID: absorbed.ID, Event: types.EventDelete,
						OldMemory: &oldAbsorbed, NewMemory: absorbed, ActorID: opts.ActorID,
						CreatedAt: now, Reason: "absorbed by merge into " + existing.ID,
					},
					ExpectedVersion: oldAbsorbed.Version,
				})
				outcomes = append(outcomes, Outcome{Event: types.EventDelete, ID: absorbed.ID, Memory: absorbed})
			}

		case types.ActionDelete:
			if d.TargetID == "" {
				continue
			}
			existing, err := o.Repository.Memories().FindByID(ctx, d.TargetID)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					continue
				}
				return nil, nil, err
			}
			old := *existing
			existing.UpdatedAt = now
			existing.IsDeleted = true
			muts = append(muts, repository.Mutation{
				Memory: existing,
				History: &types.HistoryEntry{
					ID: types.NewID(), MemoryID: existing.ID, Event: types.EventDelete,
					OldMemory: &old, NewMemory: existing, ActorID: opts.ActorID,
					CreatedAt: now, Reason: d.Reasoning,
				},
				ExpectedVersion: old.Version,
			})
			outcomes = append(outcomes, Outcome{Event: types.EventDelete, ID: existing.ID, Memory: existing})

		case types.ActionNoop:
			if d.TargetID == "" {
				continue
			}
			existing, err := o.Repository.Memories().FindByID(ctx, d.TargetID)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					continue
				}
				return nil, nil, err
			}
			old := *existing
			existing.UpdatedAt = now
			muts = append(muts, repository.Mutation{
				Memory: existing,
				History: &types.HistoryEntry{
					ID: types.NewID(), MemoryID: existing.ID, Event: types.EventNoop,
					OldMemory: &old, NewMemory: existing, ActorID: opts.ActorID, CreatedAt: now,
				},
				ExpectedVersion: old.Version,
			})
			outcomes = append(outcomes, Outcome{Event: types.EventNoop, ID: existing.ID, Memory: existing})
		}
	}

	return muts, outcomes, nil
}
