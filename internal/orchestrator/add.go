package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/observability"
	"github.com/agentmem/agentmem/internal/obslog"
	"github.com/agentmem/agentmem/internal/reconcile"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/retry"
	"github.com/agentmem/agentmem/internal/types"
)

// AddOptions narrows an add/add_with_messages call (spec §6).
type AddOptions struct {
	UserID         string
	AgentID        string
	OrganizationID string
	SessionID      string
	ActorID        string
	MemoryType     *types.MemoryType
	Scope          *types.Scope
	Metadata       map[string]any
	// Infer gates whether content is run through FactExtractor+
	// DecisionEngine (true) or written verbatim as a single ADD (false).
	Infer      bool
	Importance *float64
}

// Outcome is the per-decision result spec §4.9 step 6 requires: the event
// actually applied, the affected memory id, and its resulting state. A
// decision dropped by reconciliation, a NOOP with no target, or one whose
// target no longer exists produces no Outcome.
type Outcome struct {
	Event  types.EventKind
	ID     string
	Memory *types.Memory
}

// AddResult is the outcome of one add/add_with_messages call.
type AddResult struct {
	Outcomes []Outcome
	Warnings []string
}

// Add runs the add pipeline (spec §4.9) over a single piece of content
// framed as one user message.
func (o *Orchestrator) Add(ctx context.Context, content string, opts AddOptions) (AddResult, error) {
	if content == "" {
		return AddResult{}, apperr.Validationf("orchestrator.add", "content must not be empty")
	}
	if err := validateImportance("orchestrator.add", opts); err != nil {
		return AddResult{}, err
	}

	if opts.UserID != "" {
		hash := types.ContentHash(content)
		existing, err := o.Repository.Memories().FindByContentHash(ctx, opts.UserID, hash)
		if err != nil {
			return AddResult{}, err
		}
		if existing != nil && !existing.IsDeleted {
			return AddResult{Outcomes: []Outcome{{Event: types.EventNoop, ID: existing.ID, Memory: existing}}}, nil
		}
	}

	if !opts.Infer {
		return o.addVerbatim(ctx, content, opts)
	}

	msg := types.Message{Role: types.MessageRoleUser, Content: content}
	return o.addFromMessages(ctx, []types.Message{msg}, opts)
}

// AddWithMessages runs the add pipeline over a full conversational
// window, letting FactExtractor consider prior turns for context.
func (o *Orchestrator) AddWithMessages(ctx context.Context, messages []types.Message, opts AddOptions) (AddResult, error) {
	if len(messages) == 0 {
		return AddResult{}, apperr.Validationf("orchestrator.add_with_messages", "messages must not be empty")
	}
	if err := validateImportance("orchestrator.add_with_messages", opts); err != nil {
		return AddResult{}, err
	}

	if !opts.Infer {
		content := lastUserContent(messages)
		if content == "" {
			return AddResult{}, apperr.Validationf("orchestrator.add_with_messages", "content must not be empty")
		}
		return o.addVerbatim(ctx, content, opts)
	}
	return o.addFromMessages(ctx, messages, opts)
}

// validateImportance enforces spec §6's importance boundary: values
// outside [0,1] are rejected at the API boundary, but 1.0 itself (and
// 0.0 itself) are valid endpoints, not just near-misses.
func validateImportance(op string, opts AddOptions) error {
	if opts.Importance == nil {
		return nil
	}
	if *opts.Importance < 0 || *opts.Importance > 1 {
		return apperr.Validationf(op, "importance %.4f out of range [0,1]", *opts.Importance)
	}
	return nil
}

func lastUserContent(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.MessageRoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

// addVerbatim skips extraction and decision-making entirely: content
// becomes one ADD Memory, per spec §6 add options' infer=false.
func (o *Orchestrator) addVerbatim(ctx context.Context, content string, opts AddOptions) (AddResult, error) {
	now := time.Now().UTC()
	mem := o.newMemory(content, opts, nil, now)

	vec, warnings := o.embed(ctx, content)
	mem.Embedding = vec

	mut := repository.Mutation{
		Memory: mem,
		History: &types.HistoryEntry{
			ID: types.NewID(), MemoryID: mem.ID, Event: types.EventAdd,
			NewMemory: mem, ActorID: opts.ActorID, CreatedAt: now,
		},
	}

	if err := o.commit(ctx, []repository.Mutation{mut}); err != nil {
		return AddResult{}, err
	}
	o.postCommitUpsert(ctx, mem)
	o.invalidateScope(opts.UserID)

	return AddResult{
		Outcomes: []Outcome{{Event: types.EventAdd, ID: mem.ID, Memory: mem}},
		Warnings: warnings,
	}, nil
}

// addFromMessages runs spec §4.9 steps 2-6: extraction, per-fact
// retrieval+decision, reconciliation, and a single committed batch.
func (o *Orchestrator) addFromMessages(ctx context.Context, messages []types.Message, opts AddOptions) (AddResult, error) {
	if o.Extractor == nil {
		return AddResult{}, apperr.Internalf("orchestrator.add", "no Extractor configured for an infer=true add")
	}
	now := time.Now().UTC()

	ctx, span := observability.StartStageSpan(ctx, "extract", opts.UserID, opts.AgentID)
	facts, err := o.Extractor.Extract(ctx, messages)
	observability.EndStageSpan(span, "", "", 0, now)
	if err != nil {
		return AddResult{}, err
	}
	if len(facts) == 0 {
		return AddResult{}, nil
	}

	var warnings []string
	decisions := make([]types.Decision, 0, len(facts))
	embeddings := make(map[int][]float32, len(facts))

	for i, fact := range facts {
		vec, w := o.embed(ctx, fact.Content)
		warnings = append(warnings, w...)
		embeddings[i] = vec

		neighbourhood, w := o.neighbourhood(ctx, fact, opts, now)
		warnings = append(warnings, w...)

		d, err := o.Decision.Decide(ctx, fact, neighbourhood)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		decisions = append(decisions, d)
	}

	surviving, dropped := reconcile.ReconcileDecisions(decisions)
	for _, dr := range dropped {
		o.Logger.WarnContext(ctx, "decision dropped by reconciliation",
			"target_id", dr.TargetID, "reason", dr.Reason, "dropped_index", dr.Index, "won_by_index", dr.WonByIndex)
	}

	if o.AuditBus != nil {
		o.AuditBus.Dispatch(ctx, observability.BuildAuditRecord(surviving))
	}

	muts, outcomes, err := o.buildMutations(ctx, surviving, embeddings, facts, opts, now)
	if err != nil {
		return AddResult{}, err
	}
	if len(muts) == 0 {
		return AddResult{Outcomes: outcomes, Warnings: warnings}, nil
	}

	if err := o.commit(ctx, muts); err != nil {
		return AddResult{}, err
	}

	for _, mut := range muts {
		o.postCommitMutation(ctx, mut)
	}
	o.invalidateScope(opts.UserID)

	for i := range outcomes {
		obslog.Stage(ctx, o.Logger, "add", opts.UserID, opts.AgentID, outcomes[i].ID,
			string(outcomes[i].Event), decisionConfidence(surviving, outcomes[i].ID), time.Since(now))
	}

	return AddResult{Outcomes: outcomes, Warnings: warnings}, nil
}

func decisionConfidence(decisions []types.Decision, targetOrNewID string) float64 {
	for _, d := range decisions {
		if d.TargetID == targetOrNewID {
			return d.Confidence
		}
	}
	return 0
}

// neighbourhood runs HybridSearch restricted to the fact's inferred
// memory_type with the configured top-N (spec §4.9 step 3).
func (o *Orchestrator) neighbourhood(ctx context.Context, fact types.Fact, opts AddOptions, now time.Time) ([]types.ScoredMemory, []string) {
	if o.HybridSearch == nil {
		return nil, nil
	}
	memType := inferMemoryType(fact.Category)
	filter := types.MemoryFilter{
		UserID:         opts.UserID,
		AgentID:        opts.AgentID,
		OrganizationID: opts.OrganizationID,
		SessionID:      opts.SessionID,
		MemoryType:     &memType,
	}
	res, err := o.HybridSearch.Search(ctx, fact.Content, filter, types.Page{Limit: o.SearchNeighbourhoodTopN}, now)
	if err != nil {
		return nil, []string{err.Error()}
	}
	return res.Items, res.Warnings
}

// embed computes a Fact/content embedding, degrading to nil (lexical-only
// storage) on any Embedder absence or failure, per spec §7.
func (o *Orchestrator) embed(ctx context.Context, content string) ([]float32, []string) {
	if o.Embedder == nil {
		return nil, nil
	}
	vec, err := o.Embedder.Embed(ctx, content)
	if err != nil {
		return nil, []string{"embedding unavailable: " + err.Error()}
	}
	return vec, nil
}

func (o *Orchestrator) newMemory(content string, opts AddOptions, embedding []float32, now time.Time) *types.Memory {
	memType := types.Semantic
	if opts.MemoryType != nil {
		memType = *opts.MemoryType
	}
	scope := types.ScopeUser
	if opts.Scope != nil {
		scope = *opts.Scope
	}
	importance := 0.5
	if opts.Importance != nil {
		importance = *opts.Importance
	}
	return &types.Memory{
		ID:              types.NewID(),
		OrganizationID:  opts.OrganizationID,
		UserID:          opts.UserID,
		AgentID:         opts.AgentID,
		SessionID:       opts.SessionID,
		Content:         content,
		ContentHash:     types.ContentHash(content),
		MemoryType:      memType,
		Scope:           scope,
		Level:           types.LevelStandard,
		Importance:      importance,
		Embedding:       embedding,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByID:     opts.ActorID,
		LastUpdatedByID: opts.ActorID,
		Metadata:        opts.Metadata,
	}
}

// commit applies muts inside one repository transaction, retried under
// Transient failures (spec §7). A Conflict gets one additional
// re-read-and-retry cycle (spec §4.9 step 5, §7): the single mutation
// whose target lost the optimistic-concurrency race is re-read and its
// ExpectedVersion refreshed, then the whole batch is retried once more.
// If that mutation conflicts again, it alone is dropped from the batch
// (logged, not silently discarded) and the rest of the batch still
// commits, rather than failing every other mutation over one stale
// version.
func (o *Orchestrator) commit(ctx context.Context, muts []repository.Mutation) error {
	err := o.commitOnce(ctx, muts)
	if err == nil || !apperr.Is(err, apperr.Conflict) {
		return err
	}

	retried, ok := o.reReadConflicting(ctx, muts, err)
	if !ok {
		return err
	}
	err = o.commitOnce(ctx, retried)
	if err == nil || !apperr.Is(err, apperr.Conflict) {
		return err
	}

	remaining, droppedID := dropConflicting(retried, err)
	if droppedID == "" {
		return err
	}
	o.Logger.WarnContext(ctx, "mutation dropped after persistent version conflict", "memory_id", droppedID)
	if len(remaining) == 0 {
		return nil
	}
	return o.commitOnce(ctx, remaining)
}

func (o *Orchestrator) commitOnce(ctx context.Context, muts []repository.Mutation) error {
	return retry.Do(ctx, o.RetryConfig, func(ctx context.Context) error {
		return o.Repository.ApplyMutations(ctx, muts)
	})
}

// reReadConflicting refreshes the ExpectedVersion of whichever mutation
// err's memory_id detail names against the repository's current row,
// returning an updated copy of muts. ok is false when the conflict didn't
// name a mutation actually present in this batch (for example, an error
// without a memory_id detail).
func (o *Orchestrator) reReadConflicting(ctx context.Context, muts []repository.Mutation, err error) ([]repository.Mutation, bool) {
	id, found := conflictMemoryID(err)
	if !found {
		return nil, false
	}
	idx := -1
	for i, m := range muts {
		if m.Memory != nil && m.Memory.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}
	fresh, rerr := o.Repository.Memories().FindByID(ctx, id)
	if rerr != nil {
		return nil, false
	}
	out := append([]repository.Mutation(nil), muts...)
	out[idx].ExpectedVersion = fresh.Version
	return out, true
}

// dropConflicting removes the mutation err's memory_id names from muts,
// returning what's left and the dropped memory's id ("" if none matched).
func dropConflicting(muts []repository.Mutation, err error) ([]repository.Mutation, string) {
	id, found := conflictMemoryID(err)
	if !found {
		return muts, ""
	}
	out := make([]repository.Mutation, 0, len(muts))
	for _, m := range muts {
		if m.Memory != nil && m.Memory.ID == id {
			continue
		}
		out = append(out, m)
	}
	return out, id
}

// conflictMemoryID extracts the memory_id detail a repository Conflict
// error attaches (sqlitestore/pgstore/doltstore memories.Update/SoftDelete).
func conflictMemoryID(err error) (string, bool) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return "", false
	}
	id, ok := ae.Details["memory_id"].(string)
	return id, ok
}

// invalidateScope drops every cached search result for userID after a
// write that may have changed what a search over that scope would return.
func (o *Orchestrator) invalidateScope(userID string) {
	if o.Cache == nil {
		return
	}
	o.Cache.InvalidatePrefix(cacheScopePrefix(userID))
}

// postCommitUpsert pushes mem's vector into the index after its row is
// committed, best-effort: a failure here is recovered by the background
// reconciler's upsert-retry sweep (spec §4.2/§9), not by failing Add.
func (o *Orchestrator) postCommitUpsert(ctx context.Context, mem *types.Memory) {
	if o.VectorIndex == nil || !mem.HasEmbedding() {
		return
	}
	metadata := map[string]any{
		"user_id": mem.UserID, "agent_id": mem.AgentID, "memory_type": string(mem.MemoryType),
	}
	if err := o.VectorIndex.Upsert(ctx, mem.ID, mem.Embedding, metadata); err != nil {
		o.Logger.WarnContext(ctx, "vector upsert failed, deferring to reconciler", "memory_id", mem.ID, "error", err)
		if o.Reconciler != nil {
			o.Reconciler.EnqueueUpsert(mem.ID, mem.Embedding, metadata)
		}
	}
}

// postCommitMutation applies mut's effect on the vector index: an upsert
// for a live memory with an embedding, a delete for a soft-deleted one.
func (o *Orchestrator) postCommitMutation(ctx context.Context, mut repository.Mutation) {
	if o.VectorIndex == nil || mut.Memory == nil {
		return
	}
	if mut.History != nil && mut.History.Event == types.EventDelete {
		if err := o.VectorIndex.Delete(ctx, mut.Memory.ID); err != nil {
			o.Logger.WarnContext(ctx, "vector delete failed, deferring to reconciler", "memory_id", mut.Memory.ID, "error", err)
			if o.Reconciler != nil {
				o.Reconciler.EnqueueDelete(mut.Memory.ID)
			}
		}
		return
	}
	o.postCommitUpsert(ctx, mut.Memory)
}
