package pgstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/agentmem/agentmem/internal/types"
)

// queryer is satisfied by *pgxpool.Pool and pgx.Tx, letting repo methods
// run unmodified inside or outside an explicit transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func encodeEmbedding(v []float32) *pgvec.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvec.NewVector(v)
	return &vec
}

func decodeEmbedding(v *pgvec.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

func encodeMetadata(m map[string]any) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func decodeMetadata(b []byte) map[string]any {
	if len(b) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// marshalMemorySnapshot serializes a types.Memory for the old_memory/
// new_memory text columns in memory_history. A nil Memory serializes to "".
func marshalMemorySnapshot(m *types.Memory) string {
	if m == nil {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalMemorySnapshot(s string) *types.Memory {
	if s == "" {
		return nil
	}
	var m types.Memory
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return &m
}
