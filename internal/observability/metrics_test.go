package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRunCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	c.PacketSent()
	c.PacketSent()
	c.Reception("success", true, 50*time.Millisecond)
	c.Reception("under-sensitivity", false, 0)
	c.Orphan()
	c.SetProgress(90*time.Second, 1234)
	c.SetDelivery(0.5, 1)

	if got := testutil.ToFloat64(c.PacketsSent); got != 2 {
		t.Fatalf("packets sent = %v", got)
	}
	if got := testutil.ToFloat64(c.Receptions.WithLabelValues("success")); got != 1 {
		t.Fatalf("success receptions = %v", got)
	}
	if got := testutil.ToFloat64(c.OrphanReceptions); got != 1 {
		t.Fatalf("orphans = %v", got)
	}
	if got := testutil.ToFloat64(c.SimTime); got != 90 {
		t.Fatalf("sim time = %v", got)
	}
	if got := testutil.ToFloat64(c.DeliveryRatio); got != 0.5 {
		t.Fatalf("delivery ratio = %v", got)
	}
	if n := histogramSampleCount(t, reg, "lorawan_delivery_latency_seconds"); n != 1 {
		t.Fatalf("latency samples = %d, want 1", n)
	}
}

func TestRunCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewRunCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	a.PacketSent()
	if got := testutil.ToFloat64(b.PacketsSent); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *RunCollector
	c.PacketSent()
	c.Reception("success", true, time.Second)
	c.Orphan()
	c.SetProgress(time.Second, 1)
	c.SetDelivery(1, 0)
	c.RunFinished(time.Second)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	c.RunFinished(2 * time.Second)
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "lorawan_run_duration_seconds_count 1") {
		t.Fatalf("missing run duration in output:\n%s", body)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string) uint64 {
	t.Helper()
	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if h := histogram(m); h != nil {
				return h.GetSampleCount()
			}
		}
	}
	return 0
}

func histogram(m *dto.Metric) *dto.Histogram { return m.GetHistogram() }
