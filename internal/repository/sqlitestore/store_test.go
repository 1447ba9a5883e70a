package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/repository/sqlitestore"
	"github.com/agentmem/agentmem/internal/types"
)

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "agentmem.db")
	s, err := sqlitestore.Open(context.Background(), dbPath, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemory(userID, content string) *types.Memory {
	return &types.Memory{
		UserID:      userID,
		Content:     content,
		ContentHash: types.ContentHash(content),
		MemoryType:  types.Semantic,
		Scope:       types.ScopeUser,
		Level:       types.LevelStandard,
		Importance:  0.5,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	got, err := s.Memories().FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, int64(1), got.Version)
}

func TestFindByContentHashDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	found, err := s.Memories().FindByContentHash(ctx, "alice", types.ContentHash("I love pizza"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, m.ID, found.ID)
}

func TestUpdateVersionBumpAndConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	m.Content = "I really love pizza"
	require.NoError(t, s.Memories().Update(ctx, m, 1))
	assert.Equal(t, int64(2), m.Version)

	// Stale version must fail with Conflict.
	stale := &types.Memory{ID: m.ID, Content: "stale write", MemoryType: m.MemoryType, Scope: m.Scope, Level: m.Level}
	err := s.Memories().Update(ctx, stale, 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestBatchFindByIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m1 := newMemory("alice", "fact one")
	m2 := newMemory("alice", "fact two")
	require.NoError(t, s.Memories().Create(ctx, m1))
	require.NoError(t, s.Memories().Create(ctx, m2))

	got, err := s.Memories().BatchFindByIDs(ctx, []string{m1.ID, m2.ID, "missing-id"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchLexical(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Memories().Create(ctx, newMemory("alice", "The quick brown fox")))
	require.NoError(t, s.Memories().Create(ctx, newMemory("alice", "A lazy dog sleeps")))

	results, err := s.Memories().SearchLexical(ctx, "quick fox", types.MemoryFilter{UserID: "alice"}, types.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Memory.Content, "quick brown fox")
	assert.Greater(t, results[0].FulltextScore, 0.0)
}

func TestSoftDeleteHidesFromLexicalSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "The quick brown fox")
	require.NoError(t, s.Memories().Create(ctx, m))
	require.NoError(t, s.Memories().SoftDelete(ctx, m.ID, 1))

	results, err := s.Memories().SearchLexical(ctx, "quick", types.MemoryFilter{UserID: "alice"}, types.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSweepExpiredWorking(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Second)
	m := newMemory("alice", "ephemeral note")
	m.MemoryType = types.Working
	m.ExpiresAt = &past
	require.NoError(t, s.Memories().Create(ctx, m))

	n, err := s.Memories().SweepExpiredWorking(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Memories().FindByID(ctx, m.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestApplyMutationsAtomicWithHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	// Assign the ID up front so the history entry can reference it.
	m.ID = types.NewID()

	err := s.ApplyMutations(ctx, []repository.Mutation{{
		Memory:  m,
		History: &types.HistoryEntry{MemoryID: m.ID, Event: types.EventAdd, NewMemory: m},
	}})
	require.NoError(t, err)

	history, err := s.History().ListByMemory(ctx, m.ID, types.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.EventAdd, history[0].Event)
}

func TestAssociationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m1 := newMemory("alice", "fact one")
	m2 := newMemory("alice", "fact two")
	require.NoError(t, s.Memories().Create(ctx, m1))
	require.NoError(t, s.Memories().Create(ctx, m2))

	a := &types.Association{FromMemoryID: m1.ID, ToMemoryID: m2.ID, AssociationType: types.AssocSimilar, Strength: 0.9, Confidence: 0.8}
	require.NoError(t, s.Associations().Create(ctx, a))

	from, err := s.Associations().ListFrom(ctx, m1.ID, types.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, m2.ID, from[0].ToMemoryID)
}
