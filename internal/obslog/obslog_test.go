package obslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestStageLogsSpecAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Stage(context.Background(), logger, "extract", "u1", "a1", "m1", "ADD", 0.9, 12*time.Millisecond)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for _, key := range []string{"user_id", "agent_id", "memory_id", "decision", "confidence", "latency_ms", "stage"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("log line missing %q: %v", key, line)
		}
	}
}

func TestStageAttrsOmitsEmptyMemoryID(t *testing.T) {
	attrs := StageAttrs("u1", "a1", "", "ADD", 0.5, time.Millisecond)
	for _, a := range attrs {
		if v, ok := a.(slog.Attr); ok && v.Key == "memory_id" {
			t.Fatal("expected memory_id to be omitted when empty")
		}
	}
}

func TestNewBuildsJSONLogger(t *testing.T) {
	l := New(os.Stdout, slog.LevelInfo)
	if l == nil {
		t.Fatal("New returned nil")
	}
}
