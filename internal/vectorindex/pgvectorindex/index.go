// Package pgvectorindex implements the server VectorIndex backend on top
// of the pgvector extension via jackc/pgx/v5 and pgvector-go, with an HNSW
// index whose M and ef_construction are fixed when it is first created
// (spec §4.2).
package pgvectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

// Index is the server VectorIndex implementation. It runs on a pool the
// caller of Open supplies and keeps its own table, separate from pgstore's.
type Index struct {
	pool      *pgxpool.Pool
	dimension int

	mu     sync.Mutex
	tuning vectorindex.Tuning
	count  int64
}

// Open creates the vector_index_items table and its HNSW index for the
// given fixed dimension.
func Open(ctx context.Context, pool *pgxpool.Pool, dimension int) (*Index, error) {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS vector_index_items (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'
);
`, dimension)
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("pgvectorindex: migrate: %w", err)
	}

	idx := &Index{pool: pool, dimension: dimension, tuning: vectorindex.Tuning{M: 16, EfConstruction: 100, EfSearch: 100}}
	if err := idx.refreshCount(ctx); err != nil {
		return nil, err
	}
	if err := idx.ensureHNSWIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureHNSWIndex creates the HNSW index with the tuner's current
// {M, ef_construction} if it does not exist; safe to call repeatedly.
// pgvector bakes M/ef_construction into the index and CREATE INDEX IF NOT
// EXISTS leaves an existing index untouched, so a later bucket change
// updates the reported Tuning but does not rebuild the index. ef_search is
// applied per query and needs no rebuild.
func (idx *Index) ensureHNSWIndex(ctx context.Context) error {
	idx.mu.Lock()
	m, efConstruction := idx.tuning.M, idx.tuning.EfConstruction
	idx.mu.Unlock()
	ddl := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_vector_index_items_hnsw ON vector_index_items
		USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)`, m, efConstruction)
	if _, err := idx.pool.Exec(ctx, ddl); err != nil {
		return apperr.Wrap(apperr.Internal, "pgvectorindex.ensure_hnsw_index", err)
	}
	return nil
}

func (idx *Index) refreshCount(ctx context.Context) error {
	var n int64
	if err := idx.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vector_index_items`).Scan(&n); err != nil {
		return apperr.Wrap(apperr.Internal, "pgvectorindex.refresh_count", err)
	}
	idx.mu.Lock()
	prevEfSearch := idx.tuning.EfSearch
	prevM, prevEfConstruction := idx.tuning.M, idx.tuning.EfConstruction
	idx.count = n
	idx.tuning = vectorindex.TuningFor(n, idx.dimension)
	idx.tuning.EfSearch = prevEfSearch
	bucketChanged := idx.tuning.M != prevM || idx.tuning.EfConstruction != prevEfConstruction
	idx.mu.Unlock()
	if bucketChanged {
		return idx.ensureHNSWIndex(ctx)
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(vector) != idx.dimension {
		return apperr.Validationf("pgvectorindex.upsert", "vector has dimension %d, index expects %d", len(vector), idx.dimension)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	vec := pgvec.NewVector(vector)
	_, err = idx.pool.Exec(ctx, `
		INSERT INTO vector_index_items (id, embedding, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
		id, vec, metaJSON)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "pgvectorindex.upsert", err)
	}
	return idx.refreshCount(ctx)
}

func (idx *Index) Delete(ctx context.Context, id string) error {
	return idx.BulkDelete(ctx, []string{id})
}

func (idx *Index) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := idx.pool.Exec(ctx, `DELETE FROM vector_index_items WHERE id = ANY($1)`, ids); err != nil {
		return apperr.Wrap(apperr.Internal, "pgvectorindex.bulk_delete", err)
	}
	return idx.refreshCount(ctx)
}

// Search runs a cosine-distance ORDER BY with ef_search set for the
// session (spec §4.2 auto-tuning takes effect without an index rebuild).
func (idx *Index) Search(ctx context.Context, query []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	if len(query) != idx.dimension {
		return nil, apperr.Validationf("pgvectorindex.search", "query vector has dimension %d, index expects %d", len(query), idx.dimension)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	idx.mu.Lock()
	efSearch := idx.tuning.EfSearch
	idx.mu.Unlock()

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "pgvectorindex.search: begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, efSearch)); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "pgvectorindex.search: set ef_search", err)
	}

	vec := pgvec.NewVector(query)
	rows, err := tx.Query(ctx, `
		SELECT id, 1 - (embedding <=> $1) AS similarity, metadata
		FROM vector_index_items
		ORDER BY embedding <=> $1
		LIMIT $2`, vec, limit*4)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "pgvectorindex.search: query", err)
	}
	defer rows.Close()

	var out []vectorindex.Match
	for rows.Next() {
		var id string
		var similarity float64
		var metaJSON []byte
		if err := rows.Scan(&id, &similarity, &metaJSON); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "pgvectorindex.search: scan", err)
		}
		if opts.Threshold != nil && similarity < *opts.Threshold {
			continue
		}
		var meta map[string]any
		_ = json.Unmarshal(metaJSON, &meta)
		if !matchesFilter(meta, opts.Filter) {
			continue
		}
		out = append(out, vectorindex.Match{ID: id, Similarity: similarity, Metadata: meta})
		if len(out) >= limit {
			break
		}
	}
	if rows.Err() != nil {
		return nil, apperr.Wrap(apperr.Internal, "pgvectorindex.search: iterate", rows.Err())
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "pgvectorindex.search: commit", err)
	}
	return out, nil
}

func matchesFilter(meta map[string]any, filter map[string]any) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func (idx *Index) ReportRecall(ctx context.Context, observed float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tuning.EfSearch = vectorindex.GrowEfSearch(idx.tuning.EfSearch, observed)
	return nil
}

func (idx *Index) Stats(ctx context.Context) (vectorindex.Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return vectorindex.Stats{VectorCount: idx.count, Dimension: idx.dimension, Tuning: idx.tuning}, nil
}

// Close is a no-op: the pool belongs to the caller of Open, which closes
// it (internal/deployment registers its own closer for it).
func (idx *Index) Close() error { return nil }
