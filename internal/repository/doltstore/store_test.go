package doltstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/repository/doltstore"
	"github.com/agentmem/agentmem/internal/types"
)

// newTestStore starts a disposable `dolt sql-server` container and returns
// a connected Store. Skipped under -short since it needs a working Docker
// daemon, mirroring pgstore's testcontainers-backed test.
func newTestStore(t *testing.T) *doltstore.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	ctx := context.Background()

	container, err := dolt.Run(ctx, "dolthub/dolt-sql-server:latest",
		dolt.WithDatabase("agentmem"),
		dolt.WithUsername("agentmem"),
		dolt.WithPassword("agentmem"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	store, err := doltstore.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
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

func TestDoltStoreCreateAndFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	got, err := s.Memories().FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Content, got.Content)
	require.Equal(t, int64(1), got.Version)
}

func TestDoltStoreUpdateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	err := s.Memories().Update(ctx, m, 99)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
}

func TestDoltStoreApplyMutationsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "transactional note")

	err := s.ApplyMutations(ctx, []repository.Mutation{
		{
			Memory:  m,
			History: &types.HistoryEntry{MemoryID: m.ID, Event: types.EventAdd},
		},
	})
	require.NoError(t, err)

	got, err := s.Memories().FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "transactional note", got.Content)
}
