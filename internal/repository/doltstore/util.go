package doltstore

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/agentmem/agentmem/internal/types"
)

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func encodeMetadata(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeMetadata(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

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
