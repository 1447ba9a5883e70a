// Package orchestrator implements the Orchestrator (spec §4.9): the add
// and search pipelines that compose every other capability into the
// core-facing programmatic interface of spec §6
// (add/add_with_messages/search/get/update/delete/get_all/history/reset/
// stats). It is the facade a surrounding CLI or service calls into,
// grounded on the teacher's top-level beads.go "minimal public API"
// shape — one struct holding the storage handle (here, every capability)
// and exposing the small set of public operations.
package orchestrator

import (
	"log/slog"
	"time"

	"github.com/agentmem/agentmem/internal/cache"
	"github.com/agentmem/agentmem/internal/decision"
	"github.com/agentmem/agentmem/internal/describer"
	"github.com/agentmem/agentmem/internal/embedder"
	"github.com/agentmem/agentmem/internal/extractor"
	"github.com/agentmem/agentmem/internal/hybridsearch"
	"github.com/agentmem/agentmem/internal/observability"
	"github.com/agentmem/agentmem/internal/reconciler"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/retry"
	"github.com/agentmem/agentmem/internal/scheduler"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

// Orchestrator composes the full capability set behind the spec §6
// core-facing interface. Repository, VectorIndex, and Scheduler are
// required. An infer=true add also needs Extractor and Decision: a nil
// Extractor fails it with apperr.Internal, and Decision is called without
// a nil check (the rule-based fallbacks of those packages apply when their
// LLM is nil, not when the Extractor or Engine itself is). A nil Cache
// disables the search cache; a nil AuditBus disables decision audit
// dispatch.
type Orchestrator struct {
	Repository   repository.Repository
	VectorIndex  vectorindex.Index
	Cache        *cache.Tiered
	Extractor    *extractor.Extractor
	Decision     *decision.Engine
	HybridSearch *hybridsearch.Engine
	Scheduler    *scheduler.Scheduler
	Embedder     embedder.Embedder

	// Describer backs the add_image/add_audio/add_video façade (spec §6);
	// a nil Describer falls back to describer.Unsupported, failing those
	// calls with an apperr.Capability error rather than a nil panic.
	Describer describer.ContentDescriber

	AuditBus *observability.Bus
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	// Reconciler receives failed vector-index ops for background retry
	// (spec §4.2 "eventually consistent"); nil disables retry queuing, so
	// a failure is only logged.
	Reconciler *reconciler.Reconciler

	RetryConfig retry.Config

	// SearchNeighbourhoodTopN is the neighbour count fetched per candidate
	// Fact during the add pipeline's DecisionEngine step (spec §4.9 step
	// 3, default 20).
	SearchNeighbourhoodTopN int

	// CacheTTL is applied to a fresh search result stored in Cache.
	CacheTTL time.Duration

	// TrackAccess gates whether a search records an ACCESS HistoryEntry
	// per returned memory (spec §4.9 "search pipeline", default false
	// "to avoid history amplification").
	TrackAccess bool
}

const defaultSearchNeighbourhoodTopN = 20

// New builds an Orchestrator with spec defaults. Repository, VectorIndex,
// and Scheduler must be non-nil.
func New(repo repository.Repository, vi vectorindex.Index, sched *scheduler.Scheduler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Repository:              repo,
		VectorIndex:             vi,
		Scheduler:               sched,
		Describer:               describer.Unsupported{},
		Logger:                  slog.Default(),
		RetryConfig:             retry.DefaultConfig(),
		SearchNeighbourhoodTopN: defaultSearchNeighbourhoodTopN,
		CacheTTL:                5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures an Orchestrator beyond its defaults.
type Option func(*Orchestrator)

func WithCache(c *cache.Tiered) Option           { return func(o *Orchestrator) { o.Cache = c } }
func WithExtractor(e *extractor.Extractor) Option { return func(o *Orchestrator) { o.Extractor = e } }
func WithDecision(d *decision.Engine) Option      { return func(o *Orchestrator) { o.Decision = d } }
func WithSearchEngine(s *hybridsearch.Engine) Option {
	return func(o *Orchestrator) { o.HybridSearch = s }
}
func WithEmbedder(e embedder.Embedder) Option { return func(o *Orchestrator) { o.Embedder = e } }
func WithDescriber(d describer.ContentDescriber) Option {
	return func(o *Orchestrator) { o.Describer = d }
}
func WithAuditBus(b *observability.Bus) Option { return func(o *Orchestrator) { o.AuditBus = b } }
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.Metrics = m }
}
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.Logger = l } }
func WithRetryConfig(c retry.Config) Option {
	return func(o *Orchestrator) { o.RetryConfig = c }
}
func WithTrackAccess(track bool) Option { return func(o *Orchestrator) { o.TrackAccess = track } }
func WithReconciler(r *reconciler.Reconciler) Option {
	return func(o *Orchestrator) { o.Reconciler = r }
}
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.CacheTTL = ttl }
}
