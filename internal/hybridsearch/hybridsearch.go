// Package hybridsearch implements the HybridSearch pipeline (spec §4.8):
// query normalization, dynamic threshold, parallel dense+lexical
// retrieval, RRF fusion, optional LLM rerank, and a final Scheduler pass.
// Every phase runs in the strict order the spec names; phases 1-2 and 4
// are pure and synchronous, phase 3 suspends on two capabilities in
// parallel, phase 5 is an optional suspension.
package hybridsearch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/embedder"
	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/scheduler"
	"github.com/agentmem/agentmem/internal/types"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

const (
	defaultDenseTopK   = 50
	defaultLexicalTopK = 50
	defaultRerankTopM  = 20
)

// RRFWeights are the per-list weights used during fusion (spec §4.8
// phase 4 default {dense:0.7, lexical:0.3}).
type RRFWeights struct {
	Dense   float64
	Lexical float64
}

// DefaultRRFWeights returns the spec default {dense:0.7, lexical:0.3}.
func DefaultRRFWeights() RRFWeights { return RRFWeights{Dense: 0.7, Lexical: 0.3} }

// Engine runs the HybridSearch pipeline over one deployment's capabilities.
// Embedder and Reranker are optional: a nil Embedder demotes every search
// to lexical-only (spec §8 scenario 5, "capability degradation"); a nil
// Reranker skips phase 5 entirely.
type Engine struct {
	VectorIndex vectorindex.Index
	Memories    repository.MemoryRepository
	Embedder    embedder.Embedder
	Reranker    llm.LLM
	Scheduler   *scheduler.Scheduler
	Logger      *slog.Logger

	DenseTopK   int
	LexicalTopK int
	RRFK        int
	RRFWeights  RRFWeights
	RerankTopM  int
}

// New builds an Engine with spec-default tuning. VectorIndex, Memories,
// and Scheduler are required; Embedder and Reranker may be nil.
func New(vi vectorindex.Index, memories repository.MemoryRepository, sched *scheduler.Scheduler, emb embedder.Embedder, reranker llm.LLM) *Engine {
	return &Engine{
		VectorIndex: vi,
		Memories:    memories,
		Embedder:    emb,
		Reranker:    reranker,
		Scheduler:   sched,
		Logger:      slog.Default(),
		DenseTopK:   defaultDenseTopK,
		LexicalTopK: defaultLexicalTopK,
		RRFK:        defaultRRFK,
		RRFWeights:  DefaultRRFWeights(),
		RerankTopM:  defaultRerankTopM,
	}
}

// Result is the outcome of a Search call.
type Result struct {
	Items    []types.ScoredMemory
	HasMore  bool
	Warnings []string
}

// Search runs the full pipeline for query against filter, returning page
// Limit results starting at page Offset.
func (e *Engine) Search(ctx context.Context, query string, filter types.MemoryFilter, page types.Page, now time.Time) (Result, error) {
	normalized := NormalizeQuery(query)
	threshold := DynamicThreshold(normalized)

	dense, lexical, warnings, err := e.retrieve(ctx, normalized, filter, threshold)
	if err != nil {
		return Result{}, err
	}

	fused := Fuse([]ListWeight{
		{Name: "dense", Docs: dense.docs, Weight: e.RRFWeights.Dense},
		{Name: "lexical", Docs: lexical.docs, Weight: e.RRFWeights.Lexical},
	}, e.RRFK)

	ordered, rerankWarning := e.rerank(ctx, normalized, fused)
	if rerankWarning != "" {
		warnings = append(warnings, rerankWarning)
	}

	byID := mergeByID(dense.memories, lexical.memories)
	candidates := make([]scheduler.Candidate, 0, len(ordered))
	for _, f := range ordered {
		m, ok := byID[f.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, scheduler.Candidate{Memory: m, Relevance: f.Score})
	}

	selected := e.Scheduler.SelectMemories(candidates, len(candidates), 0, now)

	start := page.Offset
	if start > len(selected) {
		start = len(selected)
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > len(selected) {
		end = len(selected)
	}
	hasMore := end < len(selected)

	items := make([]types.ScoredMemory, 0, end-start)
	for _, s := range selected[start:end] {
		fusedEntry := findFused(ordered, s.Memory.ID)
		items = append(items, types.ScoredMemory{
			Memory:        s.Memory,
			Similarity:    fusedEntry.VectorScore,
			VectorScore:   fusedEntry.VectorScore,
			FulltextScore: fusedEntry.FulltextScore,
			FinalScore:    s.Score,
		})
	}

	return Result{Items: items, HasMore: hasMore, Warnings: warnings}, nil
}

type retrievalList struct {
	docs     []RankedDoc
	memories map[string]types.Memory
}

// retrieve runs phase 3: dense and lexical retrieval in parallel via
// errgroup. Per spec §4.8 phase 3, both must complete; a failure in
// either demotes the result set to the other, with a warning, rather
// than failing the whole search. Both failing is an error.
func (e *Engine) retrieve(ctx context.Context, query string, filter types.MemoryFilter, threshold float64) (dense, lexical retrievalList, warnings []string, err error) {
	var denseErr, lexicalErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dense, denseErr = e.retrieveDense(gctx, query, filter, threshold)
		return nil
	})
	g.Go(func() error {
		lexical, lexicalErr = e.retrieveLexical(gctx, query, filter)
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && lexicalErr != nil {
		return retrievalList{}, retrievalList{}, nil, apperr.Wrap(apperr.Transient, "hybridsearch.retrieve", lexicalErr)
	}
	if denseErr != nil {
		warnings = append(warnings, "dense retrieval failed, demoted to lexical-only: "+denseErr.Error())
		e.Logger.Warn("hybridsearch: dense retrieval failed, demoting to lexical", "error", denseErr)
	}
	if lexicalErr != nil {
		warnings = append(warnings, "lexical retrieval failed, demoted to dense-only: "+lexicalErr.Error())
		e.Logger.Warn("hybridsearch: lexical retrieval failed, demoting to dense", "error", lexicalErr)
	}
	return dense, lexical, warnings, nil
}

func (e *Engine) retrieveDense(ctx context.Context, query string, filter types.MemoryFilter, threshold float64) (retrievalList, error) {
	if e.Embedder == nil || e.VectorIndex == nil {
		return retrievalList{}, apperr.Capabilityf("hybridsearch.retrieve_dense", "no embedder/vector index configured")
	}
	vec, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return retrievalList{}, err
	}
	t := threshold
	matches, err := e.VectorIndex.Search(ctx, vec, vectorindex.SearchOptions{Limit: e.DenseTopK, Threshold: &t, Filter: filterToMap(filter)})
	if err != nil {
		return retrievalList{}, err
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	memories, err := e.Memories.BatchFindByIDs(ctx, ids)
	if err != nil {
		return retrievalList{}, err
	}
	byID := make(map[string]types.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = *m
	}
	docs := make([]RankedDoc, 0, len(matches))
	for _, m := range matches {
		if _, ok := byID[m.ID]; !ok {
			continue
		}
		docs = append(docs, RankedDoc{ID: m.ID, Score: m.Similarity})
	}
	return retrievalList{docs: docs, memories: byID}, nil
}

func (e *Engine) retrieveLexical(ctx context.Context, query string, filter types.MemoryFilter) (retrievalList, error) {
	scored, err := e.Memories.SearchLexical(ctx, query, filter, types.Page{Limit: e.LexicalTopK})
	if err != nil {
		return retrievalList{}, err
	}
	byID := make(map[string]types.Memory, len(scored))
	docs := make([]RankedDoc, 0, len(scored))
	for _, sm := range scored {
		byID[sm.Memory.ID] = sm.Memory
		docs = append(docs, RankedDoc{ID: sm.Memory.ID, Score: sm.Similarity})
	}
	return retrievalList{docs: docs, memories: byID}, nil
}

func mergeByID(a, b map[string]types.Memory) map[string]types.Memory {
	out := make(map[string]types.Memory, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func findFused(ordered []Fused, id string) Fused {
	for _, f := range ordered {
		if f.ID == id {
			return f
		}
	}
	return Fused{}
}

func filterToMap(filter types.MemoryFilter) map[string]any {
	m := map[string]any{}
	if filter.UserID != "" {
		m["user_id"] = filter.UserID
	}
	if filter.AgentID != "" {
		m["agent_id"] = filter.AgentID
	}
	if filter.MemoryType != nil {
		m["memory_type"] = string(*filter.MemoryType)
	}
	return m
}

const rerankFunctionName = "emit_rank_order"

var rerankFunction = llm.FunctionSpec{
	Name:        rerankFunctionName,
	Description: "Emit the reordered list of document ids, best match first.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"ids"},
	},
}

type rerankResponse struct {
	IDs []string `json:"ids"`
}

// rerank runs phase 5: an optional LLM reorders the top-M fused results.
// On a nil Reranker, no call, no parse failure, or an output that isn't a
// permutation of the input ids, the original RRF order is returned
// unchanged, per spec §4.8 phase 5.
func (e *Engine) rerank(ctx context.Context, query string, fused []Fused) ([]Fused, string) {
	if e.Reranker == nil || len(fused) == 0 {
		return fused, ""
	}
	topM := fused
	rest := []Fused{}
	if len(fused) > e.RerankTopM {
		topM = fused[:e.RerankTopM]
		rest = fused[e.RerankTopM:]
	}

	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\nCandidates:\n")
	for _, f := range topM {
		b.WriteString("- ")
		b.WriteString(f.ID)
		b.WriteString("\n")
	}
	result, err := e.Reranker.GenerateWithFunctions(ctx, []llm.Message{{Role: llm.RoleUser, Content: b.String()}}, []llm.FunctionSpec{rerankFunction})
	if err != nil {
		return fused, "rerank failed, original RRF order kept: " + err.Error()
	}
	var raw []byte
	for _, call := range result.FunctionCalls {
		if call.Name == rerankFunctionName {
			raw = call.Arguments
			break
		}
	}
	if raw == nil {
		return fused, "reranker did not call " + rerankFunctionName + ", original RRF order kept"
	}
	var resp rerankResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fused, "reranker output unparsable, original RRF order kept: " + err.Error()
	}
	reordered, ok := reorder(topM, resp.IDs)
	if !ok {
		return fused, "reranker output was not a permutation of the candidates, original RRF order kept"
	}
	return append(reordered, rest...), ""
}

func reorder(original []Fused, ids []string) ([]Fused, bool) {
	if len(ids) != len(original) {
		return nil, false
	}
	byID := make(map[string]Fused, len(original))
	for _, f := range original {
		byID[f.ID] = f
	}
	out := make([]Fused, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		f, ok := byID[id]
		if !ok || seen[id] {
			return nil, false
		}
		seen[id] = true
		out = append(out, f)
	}
	return out, true
}
