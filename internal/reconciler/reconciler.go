// Package reconciler implements the background sweep loop of spec §4.2/§9:
// expiring Working memories whose TTL has elapsed, and retrying vector-index
// upserts/deletes that failed inline during the add/update/delete path
// (spec §4.2: "vector-index upsert happens after commit and is eventually
// consistent"). Grounded on the teacher's daemon event loop
// (cmd/bd/daemon_event_loop.go's ticker-driven runEventDrivenLoop and
// cmd/bd/daemon_debouncer.go's Debouncer), generalized from a file-watch+
// RPC-mutation event loop to a periodic sweep loop, since this repo has no
// file-watch or RPC-mutation surface of its own to react to.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

const (
	// DefaultSweepInterval is how often the TTL sweep and retry-queue drain
	// run (spec §9 leaves the exact cadence unspecified; 30s balances
	// promptness against repository load).
	DefaultSweepInterval = 30 * time.Second
	// DefaultMaxAttempts bounds how many times a single pending vector op
	// is retried before being dropped with a logged error.
	DefaultMaxAttempts = 5
)

type opKind int

const (
	opUpsert opKind = iota
	opDelete
)

type pendingOp struct {
	kind     opKind
	id       string
	vector   []float32
	metadata map[string]any
	attempts int
}

// Reconciler runs the periodic TTL sweep and drains a queue of vector-index
// operations that failed inline and need retrying.
type Reconciler struct {
	Repo   repository.Repository
	Index  vectorindex.Index
	Logger *slog.Logger

	SweepInterval time.Duration
	MaxAttempts   int

	mu      sync.Mutex
	pending []pendingOp

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Reconciler with spec defaults.
func New(repo repository.Repository, index vectorindex.Index, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		Repo:          repo,
		Index:         index,
		Logger:        logger,
		SweepInterval: DefaultSweepInterval,
		MaxAttempts:   DefaultMaxAttempts,
	}
}

// EnqueueUpsert schedules a retry of a vector upsert that failed inline.
func (r *Reconciler) EnqueueUpsert(id string, vector []float32, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingOp{kind: opUpsert, id: id, vector: vector, metadata: metadata})
}

// EnqueueDelete schedules a retry of a vector delete that failed inline.
func (r *Reconciler) EnqueueDelete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingOp{kind: opDelete, id: id})
}

// PendingCount reports the current retry-queue depth, for metrics/tests.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start runs the sweep loop in a goroutine until ctx is cancelled or Stop
// is called. Start must be called at most once per Reconciler.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	interval := r.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweepOnce(ctx)
			}
		}
	}()
}

// Stop cancels the sweep loop and waits for it to exit.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// sweepOnce runs one TTL sweep and one retry-queue drain pass. Exported as
// RunOnce for synchronous use (tests, a manual admin trigger).
func (r *Reconciler) sweepOnce(ctx context.Context) {
	r.sweepExpired(ctx)
	r.drainPending(ctx)
}

// RunOnce runs a single sweep pass synchronously, for tests and manual
// invocation outside the ticker loop.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.sweepOnce(ctx)
}

func (r *Reconciler) sweepExpired(ctx context.Context) {
	n, err := r.Repo.Memories().SweepExpiredWorking(ctx, time.Now().UTC())
	if err != nil {
		r.Logger.ErrorContext(ctx, "ttl sweep failed", "error", err)
		return
	}
	if n > 0 {
		r.Logger.InfoContext(ctx, "ttl sweep expired working memories", "count", n)
	}
}

func (r *Reconciler) drainPending(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	var retry []pendingOp
	for _, op := range batch {
		var err error
		switch op.kind {
		case opUpsert:
			err = r.Index.Upsert(ctx, op.id, op.vector, op.metadata)
		case opDelete:
			err = r.Index.Delete(ctx, op.id)
		}
		if err == nil {
			continue
		}
		op.attempts++
		if op.attempts >= r.MaxAttempts {
			r.Logger.ErrorContext(ctx, "giving up on vector reconciliation after max attempts",
				"memory_id", op.id, "attempts", op.attempts, "error", err)
			continue
		}
		retry = append(retry, op)
	}

	if len(retry) > 0 {
		r.mu.Lock()
		r.pending = append(retry, r.pending...)
		r.mu.Unlock()
	}
}
