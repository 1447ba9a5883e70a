package pgstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/repository/pgstore"
	"github.com/agentmem/agentmem/internal/types"
)

// newTestStore starts a disposable Postgres container with the pgvector
// extension and returns a connected Store. Skipped under -short since it
// needs a working Docker daemon.
func newTestStore(t *testing.T) *pgstore.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("agentmem"),
		postgres.WithUsername("agentmem"),
		postgres.WithPassword("agentmem"),
		testcontainersWaitStrategy(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := pgstore.Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testcontainersWaitStrategy() func(*postgres.PostgresContainer) {
	return postgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2))
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

func TestPGStoreCreateAndFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	got, err := s.Memories().FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Content, got.Content)
	require.Equal(t, int64(1), got.Version)
}

func TestPGStoreUpdateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMemory("alice", "I love pizza")
	require.NoError(t, s.Memories().Create(ctx, m))

	err := s.Memories().Update(ctx, m, 99)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
}

func TestPGStoreSweepExpiredWorking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Second)
	m := newMemory("alice", "ephemeral note")
	m.MemoryType = types.Working
	m.ExpiresAt = &past
	require.NoError(t, s.Memories().Create(ctx, m))

	n, err := s.Memories().SweepExpiredWorking(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
