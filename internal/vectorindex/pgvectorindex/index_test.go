package pgvectorindex_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agentmem/agentmem/internal/vectorindex"
	"github.com/agentmem/agentmem/internal/vectorindex/pgvectorindex"
)

// newTestIndex starts a disposable pgvector-enabled Postgres container and
// returns a connected Index on a fixed dimension, mirroring pgstore's own
// testcontainers-backed test setup.
func newTestIndex(t *testing.T, dimension int) *pgvectorindex.Index {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("agentmem"),
		postgres.WithUsername("agentmem"),
		postgres.WithPassword("agentmem"),
		postgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	idx, err := pgvectorindex.Open(ctx, pool, dimension)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestPgVectorIndexUpsertAndSearch(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}, map[string]any{"user_id": "u1"}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}, map[string]any{"user_id": "u2"}))

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, vectorindex.SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Equal(t, "a", matches[0].ID)
}

func TestPgVectorIndexSearchFiltersByMetadata(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}, map[string]any{"user_id": "u1"}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{1, 0, 0}, map[string]any{"user_id": "u2"}))

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, vectorindex.SearchOptions{
		Limit:  5,
		Filter: map[string]any{"user_id": "u2"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "b", matches[0].ID)
}

func TestPgVectorIndexDeleteRemovesMatch(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Delete(ctx, "a"))

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, vectorindex.SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestPgVectorIndexRejectsWrongDimension(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	err := idx.Upsert(ctx, "a", []float32{1, 0}, nil)
	require.Error(t, err)
}

func TestPgVectorIndexStatsReportsCount(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}, nil))

	st, err := idx.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), st.VectorCount)
	require.Equal(t, 3, st.Dimension)
}
