package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentmem/agentmem/internal/hybridsearch"
	"github.com/agentmem/agentmem/internal/types"
)

// Search runs the spec §4.9 search pipeline: consult the cache by
// fingerprint, run HybridSearch on a miss, store the fresh result under
// CacheTTL, and optionally record an ACCESS HistoryEntry per returned
// memory (gated by TrackAccess, default false, "to avoid history
// amplification").
func (o *Orchestrator) Search(ctx context.Context, query string, filter types.MemoryFilter, page types.Page) (hybridsearch.Result, error) {
	if o.HybridSearch == nil {
		return hybridsearch.Result{}, nil
	}
	now := time.Now().UTC()
	key := searchFingerprint(query, filter, page)

	if o.Cache != nil {
		if cached, ok, err := o.Cache.Get(ctx, key); err == nil && ok {
			var res hybridsearch.Result
			if json.Unmarshal(cached, &res) == nil {
				o.recordAccess(ctx, res.Items)
				return res, nil
			}
		}
	}

	res, err := o.HybridSearch.Search(ctx, query, filter, page, now)
	if err != nil {
		return hybridsearch.Result{}, err
	}

	if o.Cache != nil {
		if encoded, err := json.Marshal(res); err == nil {
			_ = o.Cache.Set(ctx, key, encoded, o.CacheTTL)
		}
	}

	o.recordAccess(ctx, res.Items)
	return res, nil
}

// recordAccess appends one ACCESS HistoryEntry per returned memory when
// TrackAccess is enabled. Failures are logged, not surfaced: a missed
// access record must never fail a read path.
func (o *Orchestrator) recordAccess(ctx context.Context, items []types.ScoredMemory) {
	if !o.TrackAccess || len(items) == 0 {
		return
	}
	now := time.Now().UTC()
	for _, item := range items {
		mem := item.Memory
		entry := &types.HistoryEntry{
			ID: types.NewID(), MemoryID: mem.ID, Event: types.EventAccess,
			NewMemory: &mem, CreatedAt: now,
		}
		if err := o.Repository.History().Append(ctx, entry); err != nil {
			o.Logger.WarnContext(ctx, "access history append failed", "memory_id", mem.ID, "error", err)
		}
	}
}
