package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

type fakeMemories struct {
	repository.MemoryRepository
	swept    int64
	sweptErr error
}

func (f *fakeMemories) SweepExpiredWorking(ctx context.Context, now time.Time) (int64, error) {
	return f.swept, f.sweptErr
}

type fakeRepo struct {
	mem *fakeMemories
}

func (f *fakeRepo) Memories() repository.MemoryRepository          { return f.mem }
func (f *fakeRepo) History() repository.HistoryRepository          { return nil }
func (f *fakeRepo) Associations() repository.AssociationRepository { return nil }
func (f *fakeRepo) ApplyMutations(ctx context.Context, muts []repository.Mutation) error {
	return nil
}
func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return nil
}
func (f *fakeRepo) Stats(ctx context.Context) (repository.Stats, error) { return repository.Stats{}, nil }
func (f *fakeRepo) Close() error                                       { return nil }

type fakeIndex struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	upserted  map[string]bool
	deleted   map[string]bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserted: make(map[string]bool), deleted: make(map[string]bool)}
}
func (f *fakeIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return errors.New("transient upsert failure")
	}
	f.upserted[id] = true
	return nil
}
func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[id] = true
	return nil
}
func (f *fakeIndex) BulkDelete(ctx context.Context, ids []string) error { return nil }
func (f *fakeIndex) Search(ctx context.Context, query []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	return nil, nil
}
func (f *fakeIndex) ReportRecall(ctx context.Context, observed float64) error { return nil }
func (f *fakeIndex) Stats(ctx context.Context) (vectorindex.Stats, error)     { return vectorindex.Stats{}, nil }
func (f *fakeIndex) Close() error                                             { return nil }

func TestRunOnceSweepsExpiredWorkingMemories(t *testing.T) {
	repo := &fakeRepo{mem: &fakeMemories{swept: 3}}
	idx := newFakeIndex()
	r := New(repo, idx, slog.Default())
	r.RunOnce(context.Background())
}

func TestDrainPendingRetriesUntilSuccess(t *testing.T) {
	repo := &fakeRepo{mem: &fakeMemories{}}
	idx := newFakeIndex()
	idx.failUntil = 1
	r := New(repo, idx, slog.Default())

	r.EnqueueUpsert("m1", []float32{0.1, 0.2}, map[string]any{"user_id": "u1"})
	if r.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", r.PendingCount())
	}

	r.RunOnce(context.Background())
	if r.PendingCount() != 1 {
		t.Fatalf("after 1st drain PendingCount = %d, want 1 (still failing)", r.PendingCount())
	}

	r.RunOnce(context.Background())
	if r.PendingCount() != 0 {
		t.Fatalf("after 2nd drain PendingCount = %d, want 0 (succeeded)", r.PendingCount())
	}
	if !idx.upserted["m1"] {
		t.Fatalf("expected m1 upserted")
	}
}

func TestDrainPendingGivesUpAfterMaxAttempts(t *testing.T) {
	repo := &fakeRepo{mem: &fakeMemories{}}
	idx := newFakeIndex()
	idx.failUntil = 1000
	r := New(repo, idx, slog.Default())
	r.MaxAttempts = 2

	r.EnqueueUpsert("m1", []float32{0.1}, nil)
	r.RunOnce(context.Background())
	if r.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1 after 1st failed attempt", r.PendingCount())
	}
	r.RunOnce(context.Background())
	if r.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0 after max attempts reached", r.PendingCount())
	}
}

func TestEnqueueDeleteRetriesAndSucceeds(t *testing.T) {
	repo := &fakeRepo{mem: &fakeMemories{}}
	idx := newFakeIndex()
	r := New(repo, idx, slog.Default())

	r.EnqueueDelete("m2")
	r.RunOnce(context.Background())
	if !idx.deleted["m2"] {
		t.Fatalf("expected m2 deleted")
	}
	if r.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0", r.PendingCount())
	}
}

func TestStartStopRunsSweepLoop(t *testing.T) {
	repo := &fakeRepo{mem: &fakeMemories{}}
	idx := newFakeIndex()
	r := New(repo, idx, slog.Default())
	r.SweepInterval = 10 * time.Millisecond

	r.EnqueueUpsert("m3", []float32{0.1}, nil)
	r.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	if !idx.upserted["m3"] {
		t.Fatalf("expected the sweep loop to have drained the pending upsert")
	}
}
