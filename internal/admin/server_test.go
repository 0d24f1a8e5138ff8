package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lorawan-sim/internal/config"
	"lorawan-sim/internal/sim"
	"lorawan-sim/internal/tracker"
)

func newSim(t *testing.T) *sim.Simulation {
	t.Helper()
	cfg := config.Defaults()
	cfg.DeploymentRadiusM = 200
	cfg.StopTime = 30 * time.Second
	cfg.Mobility.MobileDevices = 0
	s, err := sim.New(context.Background(), &cfg, sim.WithRunID("run-x"))
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLedgerRoutesUnavailableWhileRunning(t *testing.T) {
	srv := NewServer(newSim(t), nil)
	for _, p := range []string{"/report", "/packets", "/window"} {
		if w := get(t, srv.Handler(), p); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status %d, want 503", p, w.Code)
		}
	}
	w := get(t, srv.Handler(), "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "still running") {
		t.Fatalf("index before finish: %d %s", w.Code, w.Body.String())
	}
	if w := get(t, srv.Handler(), "/nodes"); w.Code != http.StatusOK {
		t.Fatalf("/nodes status %d", w.Code)
	}
}

func TestRoutesAfterRun(t *testing.T) {
	s := newSim(t)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	srv := NewServer(s, metrics)

	w := get(t, srv.Handler(), "/report")
	if w.Code != http.StatusOK {
		t.Fatalf("/report status %d", w.Code)
	}
	var rep sim.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	// 2 devices, sends at 0,10,20
	if rep.RunID != "run-x" || rep.Counts.Sent != 6 {
		t.Fatalf("unexpected report %+v", rep)
	}

	w = get(t, srv.Handler(), "/window?start=10s&end=20s")
	var win windowResult
	if err := json.Unmarshal(w.Body.Bytes(), &win); err != nil {
		t.Fatalf("decode window: %v", err)
	}
	if win.Counts.Sent != 2 {
		t.Fatalf("window sent = %d, want 2", win.Counts.Sent)
	}
	if w := get(t, srv.Handler(), "/window?start=soon"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad duration status %d", w.Code)
	}

	w = get(t, srv.Handler(), "/packets")
	var packets []tracker.Packet
	if err := json.Unmarshal(w.Body.Bytes(), &packets); err != nil {
		t.Fatalf("decode packets: %v", err)
	}
	if len(packets) != 6 {
		t.Fatalf("packets = %d, want 6", len(packets))
	}

	if w := get(t, srv.Handler(), "/"); !strings.Contains(w.Body.String(), "Delivery ratio") {
		t.Fatalf("index should show report:\n%s", w.Body.String())
	}
	if w := get(t, srv.Handler(), "/metrics"); w.Body.String() != "ok" {
		t.Fatalf("metrics handler not mounted")
	}
	if w := get(t, srv.Handler(), "/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown path status %d", w.Code)
	}
}
