package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}

func TestNewWithConfigJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, Config{Level: "warn", Format: "json"})
	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Info("dropped")
	FromContext(ctx).Warn("kept", "orphans", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "kept" || rec["orphans"] != float64(2) {
		t.Fatalf("unexpected record %v", rec)
	}
}
