// Package deployment assembles a complete Orchestrator from a loaded
// config.Config, playing the role the teacher's internal/storage/factory
// registry plays for a single storage backend: given a DeploymentMode, it
// picks concrete embedded or server implementations for every capability
// the Orchestrator needs and wires them together. Unlike the teacher's
// registry (one pluggable concern, storage), a full AgentMem deployment
// has several concerns varying together by mode, so Assemble switches
// once on mode and builds the whole capability set in lockstep rather
// than dispatching through per-concern factories.
package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/cache"
	"github.com/agentmem/agentmem/internal/config"
	"github.com/agentmem/agentmem/internal/decision"
	"github.com/agentmem/agentmem/internal/describer"
	"github.com/agentmem/agentmem/internal/embedder"
	"github.com/agentmem/agentmem/internal/extractor"
	"github.com/agentmem/agentmem/internal/hybridsearch"
	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/observability"
	"github.com/agentmem/agentmem/internal/orchestrator"
	"github.com/agentmem/agentmem/internal/reconciler"
	"github.com/agentmem/agentmem/internal/remotecache"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/repository/pgstore"
	"github.com/agentmem/agentmem/internal/repository/sqlitestore"
	"github.com/agentmem/agentmem/internal/scheduler"
	"github.com/agentmem/agentmem/internal/types"
	"github.com/agentmem/agentmem/internal/vectorindex"
	"github.com/agentmem/agentmem/internal/vectorindex/pgvectorindex"
	"github.com/agentmem/agentmem/internal/vectorindex/sqlitevec"
)

// Assembly holds every resource Assemble opened, so the caller can drive
// the Orchestrator and later release everything with one Close call.
type Assembly struct {
	Orchestrator *orchestrator.Orchestrator
	Reconciler   *reconciler.Reconciler
	Repository   repository.Repository
	VectorIndex  vectorindex.Index
	Logger       *slog.Logger

	closers []func() error
}

// Close releases every resource Assemble opened, in reverse order. It
// stops the background reconciler first so no retry sweep races a
// closed pool.
func (a *Assembly) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// options collects the values a caller may inject instead of having
// Assemble construct them. DeploymentMode only describes storage/vector/
// pool shape (spec §4 "external interfaces"); model-provider credentials
// are a separate concern the caller resolves (e.g. via llmprovider/
// embedderprovider) and hands in here.
type options struct {
	llmModel    llm.LLM
	embedder    embedder.Embedder
	describer   describer.ContentDescriber
	reranker    llm.LLM
	remoteCache remotecache.RemoteCache
	logger      *slog.Logger
	cacheConfig *cache.Config
	trackAccess bool
}

// Option configures Assemble beyond the DeploymentMode/timeouts already
// present in config.Config.
type Option func(*options)

// WithLLM injects the model FactExtractor/DecisionEngine call for
// inference. Nil keeps both engines in their rule-based fallback mode.
func WithLLM(model llm.LLM) Option { return func(o *options) { o.llmModel = model } }

// WithEmbedder injects the Embedder used for memory and query vectors.
// Nil disables dense retrieval; HybridSearch degrades to lexical-only.
func WithEmbedder(e embedder.Embedder) Option { return func(o *options) { o.embedder = e } }

// WithReranker injects the LLM HybridSearch phase 5 consults to rerank
// its fused candidates. Nil skips reranking.
func WithReranker(model llm.LLM) Option { return func(o *options) { o.reranker = model } }

// WithDescriber injects a ContentDescriber for the add_image/add_audio/
// add_video façade. Omitting this leaves the Orchestrator's
// describer.Unsupported default, which fails those calls loudly.
func WithDescriber(d describer.ContentDescriber) Option {
	return func(o *options) { o.describer = d }
}

// WithRemoteCache injects an L2 RemoteCache, wrapping the L1 cache.New
// instance into a cache.Tiered. Nil keeps a single-tier L1-only cache.
func WithRemoteCache(rc remotecache.RemoteCache) Option {
	return func(o *options) { o.remoteCache = rc }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

// WithCacheConfig overrides the default L1 cache.Config.
func WithCacheConfig(cfg cache.Config) Option { return func(o *options) { o.cacheConfig = &cfg } }

// WithTrackAccess enables Orchestrator.TrackAccess (spec §4.9 search
// pipeline access-history recording, off by default).
func WithTrackAccess(track bool) Option { return func(o *options) { o.trackAccess = track } }

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		cacheConfig: &cache.Config{
			MaxEntries:   10_000,
			MaxSizeBytes: 64 << 20,
			DefaultTTL:   5 * time.Minute,
			EnableStats:  true,
		},
	}
}

// Assemble builds a complete Orchestrator from cfg, opening whichever
// concrete embedded or server backends cfg.Deployment selects.
func Assemble(ctx context.Context, cfg *config.Config, opts ...Option) (*Assembly, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	switch {
	case cfg.Deployment.IsEmbedded():
		return assembleEmbedded(ctx, cfg, o)
	case cfg.Deployment.IsServer():
		return assembleServer(ctx, cfg, o)
	default:
		return nil, apperr.Validationf("deployment.assemble", "config has neither embedded nor server deployment mode set")
	}
}

func assembleEmbedded(ctx context.Context, cfg *config.Config, o *options) (*Assembly, error) {
	ec := cfg.Deployment.Embedded
	a := &Assembly{Logger: o.logger}

	repo, err := sqlitestore.Open(ctx, ec.DBPath, ec.EnableWAL)
	if err != nil {
		return nil, fmt.Errorf("deployment: open sqlite repository: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	a.Repository = repo

	vi, err := sqlitevec.Open(ctx, ec.VectorPath, ec.VectorDimension)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("deployment: open sqlite vector index: %w", err)
	}
	a.closers = append(a.closers, vi.Close)
	a.VectorIndex = vi

	return finishAssembly(ctx, a, repo, vi, o)
}

// pgVectorServiceRequired is the only VectorService this build concretely
// supports in server mode; the retrieval pack ships client code for
// pgvector only. Every other types.KnownVectorServices entry is rejected
// at Assemble time rather than silently falling back to something else.
const pgVectorServiceRequired = types.VectorServicePgVector

func assembleServer(ctx context.Context, cfg *config.Config, o *options) (*Assembly, error) {
	sc := cfg.Deployment.Server
	if sc.VectorService != pgVectorServiceRequired {
		return nil, apperr.Validationf("deployment.assemble",
			"server deployment only supports vector_service=%s in this build, got %q", pgVectorServiceRequired, sc.VectorService)
	}

	a := &Assembly{Logger: o.logger}

	repo, err := pgstore.Open(ctx, sc.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("deployment: open postgres repository: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	a.Repository = repo

	// pgvectorindex needs its own *pgxpool.Pool: pgstore.Store keeps its
	// pool private, so this is a second, independently configured pool
	// rather than a shared one, mirroring pgstore.Open's own construction
	// (including the pgvector AfterConnect hook the driver needs to
	// encode/decode vector columns).
	poolCfg, err := pgxpool.ParseConfig(sc.DatabaseURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("deployment: parse vector pool dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvec.RegisterTypes(ctx, conn)
	}
	if sc.Pool.MinConns > 0 {
		poolCfg.MinConns = int32(sc.Pool.MinConns)
	}
	if sc.Pool.MaxConns > 0 {
		poolCfg.MaxConns = int32(sc.Pool.MaxConns)
	}
	if sc.Pool.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = sc.Pool.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("deployment: open vector pool: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	vi, err := pgvectorindex.Open(ctx, pool, sc.VectorDimension)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("deployment: open pgvector index: %w", err)
	}
	a.closers = append(a.closers, vi.Close)
	a.VectorIndex = vi

	return finishAssembly(ctx, a, repo, vi, o)
}

// finishAssembly builds the mode-independent capability set (cache,
// scheduler, extractor, decision engine, hybrid search, observability,
// reconciler) and the final Orchestrator, given an already-open
// Repository and VectorIndex.
func finishAssembly(ctx context.Context, a *Assembly, repo repository.Repository, vi vectorindex.Index, o *options) (*Assembly, error) {
	l1 := cache.New(*o.cacheConfig)
	tiered := cache.NewTiered(l1, o.remoteCache)

	sched, err := scheduler.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("deployment: start scheduler: %w", err)
	}

	ext := extractor.New(o.llmModel)
	dec := decision.New(o.llmModel)
	hs := hybridsearch.New(vi, repo.Memories(), sched, o.embedder, o.reranker)

	bus := observability.NewBus(o.logger)
	metrics := &observability.Metrics{}

	recon := reconciler.New(repo, vi, o.logger)
	recon.Start(ctx)
	a.closers = append(a.closers, func() error { recon.Stop(); return nil })
	a.Reconciler = recon

	orchOpts := []orchestrator.Option{
		orchestrator.WithCache(tiered),
		orchestrator.WithExtractor(ext),
		orchestrator.WithDecision(dec),
		orchestrator.WithSearchEngine(hs),
		orchestrator.WithEmbedder(o.embedder),
		orchestrator.WithAuditBus(bus),
	}
	if o.describer != nil {
		orchOpts = append(orchOpts, orchestrator.WithDescriber(o.describer))
	}
	orchOpts = append(orchOpts,
		orchestrator.WithMetrics(metrics),
		orchestrator.WithLogger(o.logger),
		orchestrator.WithReconciler(recon),
		orchestrator.WithTrackAccess(o.trackAccess),
	)
	a.Orchestrator = orchestrator.New(repo, vi, sched, orchOpts...)

	return a, nil
}
