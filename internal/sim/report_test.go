package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/tracker"
)

func sampleTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	tr := tracker.New(10 * time.Second)
	for i, at := range []time.Duration{0, 10 * time.Second, 20 * time.Second} {
		if err := tr.RecordTransmission(1, uint64(1<<32|i), at, 23); err != nil {
			t.Fatalf("RecordTransmission: %v", err)
		}
	}
	if err := tr.RecordReception(0, 1<<32, time.Millisecond, radio.OutcomeSuccess, ""); err != nil {
		t.Fatalf("RecordReception: %v", err)
	}
	if err := tr.RecordReception(0, 1<<32|1, 10*time.Second, radio.OutcomeFailure, "below sensitivity"); err != nil {
		t.Fatalf("RecordReception: %v", err)
	}
	_ = tr.RecordReception(0, 77, time.Second, radio.OutcomeSuccess, "")
	return tr
}

func TestNewReport(t *testing.T) {
	r := NewReport(sampleTracker(t), 0, 25*time.Second)
	if r.Counts.Sent != 3 || r.Counts.UniqueDelivered != 1 || r.Counts.Failed != 1 || r.Counts.Pending != 1 {
		t.Fatalf("unexpected counts %+v", r.Counts)
	}
	if r.Orphans != 1 {
		t.Fatalf("orphans = %d, want 1", r.Orphans)
	}
	if len(r.Gateways) != 1 || r.Gateways[0].Received != 1 || r.Gateways[0].Lost != 1 {
		t.Fatalf("unexpected gateway stats %+v", r.Gateways)
	}
}

func TestReportRenderPlain(t *testing.T) {
	r := NewReport(sampleTracker(t), 0, 25*time.Second)
	r.RunID = "run-1"
	out := r.Render(false)
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain render contains ANSI sequences:\n%s", out)
	}
	for _, want := range []string{"run-1", "Orphan receptions", "Gateway 0", "1 received, 1 lost"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintReport(&buf, Report{RunID: "x"}); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("buffer output should not be colored")
	}
	if isTerminal(&buf) {
		t.Fatalf("buffer is not a terminal")
	}
}
