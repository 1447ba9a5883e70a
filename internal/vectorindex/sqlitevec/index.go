// Package sqlitevec implements the embedded VectorIndex backend on top of
// sqlite-vec, loaded into a CGO-enabled mattn/go-sqlite3 connection (the
// vec0 virtual table is a loadable C extension; the pure-Go
// modernc.org/sqlite driver the RepositoryLayer uses cannot load it). The
// index lives in its own sibling file so the embedded RepositoryLayer
// store stays CGO-free.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

func init() {
	sqlite_vec.Auto()
}

// Index is the embedded VectorIndex implementation.
type Index struct {
	db        *sql.DB
	dimension int

	mu     sync.Mutex
	tuning vectorindex.Tuning
	count  int64
}

// Open creates (if needed) the vec0 virtual table at path for the given
// fixed dimension.
func Open(ctx context.Context, path string, dimension int) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	schema := fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS vec_items USING vec0(embedding float[%d]);
CREATE TABLE IF NOT EXISTS vec_meta (
	id TEXT PRIMARY KEY,
	rowid_ref INTEGER NOT NULL UNIQUE,
	metadata TEXT NOT NULL DEFAULT '{}'
);
`, dimension)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitevec: migrate: %w", err)
	}

	idx := &Index{db: db, dimension: dimension, tuning: vectorindex.Tuning{M: 16, EfConstruction: 100, EfSearch: 100}}
	if err := idx.refreshCount(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) refreshCount(ctx context.Context) error {
	var n int64
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_meta`).Scan(&n); err != nil {
		return apperr.Wrap(apperr.Internal, "sqlitevec.refresh_count", err)
	}
	idx.mu.Lock()
	prevEfSearch := idx.tuning.EfSearch
	idx.count = n
	idx.tuning = vectorindex.TuningFor(n, idx.dimension)
	idx.tuning.EfSearch = prevEfSearch
	idx.mu.Unlock()
	return nil
}

func (idx *Index) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(vector) != idx.dimension {
		return apperr.Validationf("sqlitevec.upsert", "vector has dimension %d, index expects %d", len(vector), idx.dimension)
	}
	raw, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return apperr.Internalf("sqlitevec.upsert", "serialize vector: %s", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "sqlitevec.upsert: begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowID int64
	err = tx.QueryRowContext(ctx, `SELECT rowid_ref FROM vec_meta WHERE id = ?`, id).Scan(&rowID)
	switch {
	case err == sql.ErrNoRows:
		res, insErr := tx.ExecContext(ctx, `INSERT INTO vec_items(embedding) VALUES (?)`, raw)
		if insErr != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: insert vector", insErr)
		}
		rowID, err = res.LastInsertId()
		if err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: last_insert_id", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_meta(id, rowid_ref, metadata) VALUES (?,?,?)`, id, rowID, string(metaJSON)); err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: insert meta", err)
		}
	case err != nil:
		return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: lookup", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE vec_items SET embedding = ? WHERE rowid = ?`, raw, rowID); err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: update vector", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE vec_meta SET metadata = ? WHERE id = ?`, string(metaJSON), id); err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: update meta", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, "sqlitevec.upsert: commit", err)
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
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "sqlitevec.bulk_delete: begin", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, id := range ids {
		var rowID int64
		err := tx.QueryRowContext(ctx, `SELECT rowid_ref FROM vec_meta WHERE id = ?`, id).Scan(&rowID)
		if err == sql.ErrNoRows {
			continue // best-effort (spec §4.2)
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.bulk_delete: lookup", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_items WHERE rowid = ?`, rowID); err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.bulk_delete: delete vector", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_meta WHERE id = ?`, id); err != nil {
			return apperr.Wrap(apperr.Internal, "sqlitevec.bulk_delete: delete meta", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, "sqlitevec.bulk_delete: commit", err)
	}
	return idx.refreshCount(ctx)
}

// Search runs a vec0 KNN query with k bounded well above Limit so metadata
// filtering (applied in Go, since vec0 lacks arbitrary JSON predicates) and
// a similarity threshold still leave enough candidates to fill the page.
func (idx *Index) Search(ctx context.Context, query []float32, opts vectorindex.SearchOptions) ([]vectorindex.Match, error) {
	if len(query) != idx.dimension {
		return nil, apperr.Validationf("sqlitevec.search", "query vector has dimension %d, index expects %d", len(query), idx.dimension)
	}
	raw, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, apperr.Internalf("sqlitevec.search", "serialize query: %s", err)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	idx.mu.Lock()
	efSearch := idx.tuning.EfSearch
	idx.mu.Unlock()
	k := limit * 4
	if k < efSearch {
		k = efSearch
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT vec_meta.id, vec_items.distance, vec_meta.metadata
		FROM vec_items
		JOIN vec_meta ON vec_meta.rowid_ref = vec_items.rowid
		WHERE vec_items.embedding MATCH ? AND k = ?
		ORDER BY vec_items.distance ASC`, raw, k)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "sqlitevec.search: query", err)
	}
	defer func() { _ = rows.Close() }()

	var out []vectorindex.Match
	for rows.Next() {
		var id, metaJSON string
		var distance float64
		if err := rows.Scan(&id, &distance, &metaJSON); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "sqlitevec.search: scan", err)
		}
		similarity := 1 - distance/2 // vec0 reports squared L2 over normalized vectors; approximate cosine
		if opts.Threshold != nil && similarity < *opts.Threshold {
			continue
		}
		var meta map[string]any
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		if !matchesFilter(meta, opts.Filter) {
			continue
		}
		out = append(out, vectorindex.Match{ID: id, Similarity: similarity, Metadata: meta})
		if len(out) >= limit {
			break
		}
	}
	if rows.Err() != nil {
		return nil, apperr.Wrap(apperr.Internal, "sqlitevec.search: iterate", rows.Err())
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

// ReportRecall grows ef_search toward the 500 ceiling when observed recall
// misses target (spec §4.2); it takes effect on the next Search call.
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

func (idx *Index) Close() error {
	return idx.db.Close()
}
