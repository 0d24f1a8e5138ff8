package traffic

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/engine"
	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/scenario"
)

type sent struct {
	sender int
	id     uint64
	at     time.Duration
	size   int
}

type mockRecorder struct {
	rows []sent
	err  error
}

func (m *mockRecorder) RecordTransmission(sender int, id uint64, at time.Duration, size int) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, sent{sender, id, at, size})
	return nil
}

type mockTransmitter struct{ ids []uint64 }

func (m *mockTransmitter) Transmit(_ radio.DeviceHandle, id uint64, _ int) error {
	m.ids = append(m.ids, id)
	return nil
}

type nopAttacher struct{}

func (nopAttacher) Attach(int, radio.DeviceConfig, *channel.Model) (radio.DeviceHandle, error) {
	return radio.DeviceHandle{}, nil
}

func deploy(t *testing.T) *scenario.NodeSet {
	t.Helper()
	model, err := channel.Build(channel.DefaultConfig())
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	set, err := scenario.Deploy(nopAttacher{}, model, []scenario.NodeSpec{
		{Role: radio.EndDevice{TxPowerDbm: 14}},
		{Role: radio.EndDevice{TxPowerDbm: 14}},
		{Role: radio.Gateway{SensitivityDbm: -130}},
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	return set
}

func TestPeriodicScenarioTenSends(t *testing.T) {
	set := deploy(t)
	d := engine.NewDriver()
	rec := &mockRecorder{}
	tx := &mockTransmitter{}
	g := NewGenerator(d, rec, tx, nil)
	node, _ := set.Get(0)
	err := g.SchedulePeriodic(node, Periodic{Period: 10 * time.Second, PacketSize: 23, Stop: 100 * time.Second})
	if err != nil {
		t.Fatalf("SchedulePeriodic: %v", err)
	}
	if d.Pending() != 1 {
		t.Fatalf("only the next send should be queued, got %d", d.Pending())
	}
	if err := d.Run(context.Background(), time.Hour); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.rows) != 10 {
		t.Fatalf("expected 10 sends, got %d", len(rec.rows))
	}
	for k, r := range rec.rows {
		if r.at != time.Duration(k)*10*time.Second {
			t.Fatalf("send %d at %s", k, r.at)
		}
		if r.id != PacketID(0, uint32(k)) || r.size != 23 {
			t.Fatalf("send %d: %+v", k, r)
		}
	}
	if len(tx.ids) != 10 || g.Sends() != 10 {
		t.Fatalf("transmit count %d, sends %d", len(tx.ids), g.Sends())
	}
}

func TestSendTimesStayInSlot(t *testing.T) {
	cases := []struct {
		name   string
		p      Periodic
		jitter bool
	}{
		{"no jitter", Periodic{Period: 10 * time.Second, Stop: 95 * time.Second}, false},
		{"uniform", Periodic{Period: time.Second, Stop: 60 * time.Second, Jitter: Uniform{Max: 2 * time.Second}}, true},
		{"negative constant", Periodic{Period: time.Second, Stop: 30 * time.Second, Jitter: Constant(-time.Second)}, true},
		{"oversized constant", Periodic{Period: time.Second, Stop: 30 * time.Second, Jitter: Constant(5 * time.Second)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rand.New(rand.NewPCG(1, 2))
			k := 0
			prev := time.Duration(-1)
			for at := range tc.p.SendTimes(r) {
				lo := tc.p.Start + time.Duration(k)*tc.p.Period
				if at < lo || at >= lo+tc.p.Period {
					t.Fatalf("send %d at %s outside [%s, %s)", k, at, lo, lo+tc.p.Period)
				}
				if at <= prev {
					t.Fatalf("send %d not after previous", k)
				}
				prev = at
				k++
			}
			if !tc.jitter && k != tc.p.Slots() {
				t.Fatalf("expected %d sends, got %d", tc.p.Slots(), k)
			}
			if k > tc.p.Slots() {
				t.Fatalf("more sends (%d) than slots (%d)", k, tc.p.Slots())
			}
		})
	}
}

func TestSlotsRoundsUp(t *testing.T) {
	p := Periodic{Period: 10 * time.Second, Start: 5 * time.Second, Stop: 100 * time.Second}
	if p.Slots() != 10 {
		t.Fatalf("ceil(95/10) = 10, got %d", p.Slots())
	}
	n := 0
	for range p.SendTimes(nil) {
		n++
	}
	if n != 10 {
		t.Fatalf("expected 10 sends, got %d", n)
	}
}

func TestOneShotAndIDs(t *testing.T) {
	set := deploy(t)
	d := engine.NewDriver()
	rec := &mockRecorder{}
	g := NewGenerator(d, rec, &mockTransmitter{}, nil)
	a, _ := set.Get(0)
	b, _ := set.Get(1)
	if err := g.ScheduleOneShot(a, 10*time.Second, 23); err != nil {
		t.Fatal(err)
	}
	if err := g.ScheduleOneShot(b, 10*time.Second, 12); err != nil {
		t.Fatal(err)
	}
	if err := g.ScheduleOneShot(a, 20*time.Second, 23); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background(), time.Minute); err != nil {
		t.Fatal(err)
	}
	want := []uint64{PacketID(0, 0), PacketID(1, 0), PacketID(0, 1)}
	for i, r := range rec.rows {
		if r.id != want[i] {
			t.Fatalf("send %d id %#x, want %#x", i, r.id, want[i])
		}
	}
}

func TestScheduleRejectsInvalid(t *testing.T) {
	set := deploy(t)
	g := NewGenerator(engine.NewDriver(), &mockRecorder{}, &mockTransmitter{}, nil)
	ed, _ := set.Get(0)
	gw, _ := set.Get(2)
	if err := g.ScheduleOneShot(gw, time.Second, 10); err == nil {
		t.Fatal("gateway must not send")
	}
	if err := g.ScheduleOneShot(ed, time.Second, 0); err == nil {
		t.Fatal("zero size must fail")
	}
	bad := []Periodic{
		{Period: 0, PacketSize: 1, Stop: time.Second},
		{Period: time.Second, PacketSize: 0, Stop: time.Second},
		{Period: time.Second, PacketSize: 1, Start: time.Second, Stop: time.Second},
	}
	for _, p := range bad {
		if err := g.SchedulePeriodic(ed, p); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
	}
}

func TestRecorderErrorAbortsRun(t *testing.T) {
	set := deploy(t)
	d := engine.NewDriver()
	boom := errors.New("duplicate")
	g := NewGenerator(d, &mockRecorder{err: boom}, &mockTransmitter{}, nil)
	node, _ := set.Get(0)
	if err := g.SchedulePeriodic(node, Periodic{Period: time.Second, PacketSize: 1, Stop: time.Minute}); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background(), time.Hour); !errors.Is(err, boom) {
		t.Fatalf("expected recorder error, got %v", err)
	}
}

func TestParseDistribution(t *testing.T) {
	if d, err := ParseDistribution("", 0, 0); err != nil || d != (None{}) {
		t.Fatalf("default: %v %v", d, err)
	}
	if d, _ := ParseDistribution("constant", 0, time.Second); d != Constant(time.Second) {
		t.Fatalf("constant: %v", d)
	}
	if _, err := ParseDistribution("uniform", time.Second, 0); err == nil {
		t.Fatal("inverted bounds must fail")
	}
	if _, err := ParseDistribution("gaussian", 0, 0); err == nil {
		t.Fatal("unknown kind must fail")
	}
}
