package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lorawan-sim/internal/config"
	"lorawan-sim/internal/sim"
)

func TestNewWritersJSON(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	cfg := config.Defaults()
	w, err := newWriters(context.Background(), &cfg, writerOptions{Output: outputJSON})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer w.cleanup()
	if _, ok := w.Writer.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w.Writer)
	}
	if w.tui != nil {
		t.Fatalf("no TUI expected")
	}
}

func TestNewWritersNone(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	cfg := config.Defaults()
	w, err := newWriters(context.Background(), &cfg, writerOptions{Output: outputNone})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	w.cleanup()
	if _, ok := w.Writer.(sim.NopWriter); !ok {
		t.Fatalf("expected sim.NopWriter, got %T", w.Writer)
	}
}

func TestNewWritersUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	if _, err := newWriters(context.Background(), &cfg, writerOptions{Output: "hologram"}); err == nil {
		t.Fatalf("expected error for unknown output mode")
	}
}

func TestNewWritersLogFile(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	cfg := config.Defaults()
	prefix := filepath.Join(t.TempDir(), "run")
	w, err := newWriters(context.Background(), &cfg, writerOptions{Output: outputPlain, LogFile: prefix})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := w.Writer.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w.Writer)
	}
	mw := w.Writer.(*sim.MultiWriter)
	if mw.Len() != 2 {
		t.Fatalf("expected console and file writers, got %d", mw.Len())
	}
	if err := mw.WriteState(sim.StateRow{RunID: "r", Sent: 1}); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	w.cleanup()
	info, err := os.Stat(prefix + ".state")
	if err != nil {
		t.Fatalf("stat state failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected state file to be non-empty")
	}
}
