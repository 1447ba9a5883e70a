package sqlitevec_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/vectorindex"
	"github.com/agentmem/agentmem/internal/vectorindex/sqlitevec"
)

func openTestIndex(t *testing.T) *sqlitevec.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	idx, err := sqlitevec.Open(context.Background(), path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestUpsertAndSearchReturnsNearestFirst(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0, 0}, map[string]any{"kind": "fact"}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0, 0}, map[string]any{"kind": "fact"}))

	matches, err := idx.Search(ctx, []float32{1, 0, 0, 0}, vectorindex.SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "a", matches[0].ID)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	idx := openTestIndex(t)
	err := idx.Upsert(context.Background(), "bad", []float32{1, 2}, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestDeleteIsBestEffortOnMissingID(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Delete(context.Background(), "does-not-exist"))
}

func TestSearchAppliesMetadataFilter(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0, 0}, map[string]any{"user_id": "alice"}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{1, 0, 0, 0}, map[string]any{"user_id": "bob"}))

	matches, err := idx.Search(ctx, []float32{1, 0, 0, 0}, vectorindex.SearchOptions{
		Limit:  5,
		Filter: map[string]any{"user_id": "bob"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)
}

func TestReportRecallGrowsEfSearch(t *testing.T) {
	idx := openTestIndex(t)
	before, err := idx.Stats(context.Background())
	require.NoError(t, err)

	require.NoError(t, idx.ReportRecall(context.Background(), 0.5))
	after, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Greater(t, after.Tuning.EfSearch, before.Tuning.EfSearch)
}
