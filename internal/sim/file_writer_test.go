package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWriterStreams(t *testing.T) {
	dir := t.TempDir()
	pPath := filepath.Join(dir, "p.jsonl")
	rPath := filepath.Join(dir, "r.jsonl")
	sPath := filepath.Join(dir, "s.jsonl")
	fw, err := NewFileWriter(pPath, rPath, sPath)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WritePackets([]PacketRow{{PacketID: 1}, {PacketID: 2}}); err != nil {
		t.Fatalf("WritePackets: %v", err)
	}
	if err := fw.WriteReception(ReceptionRow{PacketID: 1, Gateway: 4}); err != nil {
		t.Fatalf("WriteReception: %v", err)
	}
	if err := fw.WriteState(StateRow{SimTime: time.Minute, Sent: 2}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if n := countLines(t, pPath); n != 2 {
		t.Fatalf("packet lines = %d, want 2", n)
	}
	if n := countLines(t, rPath); n != 1 {
		t.Fatalf("reception lines = %d, want 1", n)
	}
	data, err := os.ReadFile(sPath)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var st StateRow
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.SimTime != time.Minute || st.Sent != 2 {
		t.Fatalf("unexpected state row %+v", st)
	}
}

func TestFileWriterOptionalStreams(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "p.jsonl"), "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteReception(ReceptionRow{}); err != nil {
		t.Fatalf("disabled reception log should be a no-op: %v", err)
	}
	if err := fw.WriteState(StateRow{}); err != nil {
		t.Fatalf("disabled state log should be a no-op: %v", err)
	}
}

func TestFileWriterBadPath(t *testing.T) {
	if _, err := NewFileWriter(filepath.Join(t.TempDir(), "missing", "p.jsonl"), "", ""); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}
