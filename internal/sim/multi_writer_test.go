package sim

import (
	"errors"
	"testing"
)

type batchCollector struct {
	collectWriter
	batches int
}

func (b *batchCollector) WritePackets(rows []PacketRow) error {
	b.batches++
	b.packets = append(b.packets, rows...)
	return nil
}

type adminCollector struct {
	collectWriter
	status bool
}

func (a *adminCollector) SetAdminStatus(on bool) { a.status = on }

type failingWriter struct{ NopWriter }

var errWrite = errors.New("write failed")

func (failingWriter) WriteState(StateRow) error { return errWrite }
func (failingWriter) Close() error              { return errWrite }

func TestMultiWriterFanOut(t *testing.T) {
	a := &collectWriter{}
	b := &batchCollector{}
	mw := NewMultiWriter(a)
	mw.Add(b)
	if mw.Len() != 2 {
		t.Fatalf("Len = %d, want 2", mw.Len())
	}
	if err := mw.WritePackets([]PacketRow{{PacketID: 1}, {PacketID: 2}}); err != nil {
		t.Fatalf("WritePackets: %v", err)
	}
	if len(a.packets) != 2 || len(b.packets) != 2 {
		t.Fatalf("rows not fanned out: %d %d", len(a.packets), len(b.packets))
	}
	if b.batches != 1 {
		t.Fatalf("batch writer should get one batch, got %d", b.batches)
	}
	if err := mw.WriteReceptions([]ReceptionRow{{PacketID: 1}}); err != nil {
		t.Fatalf("WriteReceptions: %v", err)
	}
	if err := mw.WriteState(StateRow{Sent: 2}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if len(a.receptions) != 1 || len(b.states) != 1 {
		t.Fatalf("unexpected rows %+v %+v", a, b)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("writers not closed")
	}
}

func TestMultiWriterErrors(t *testing.T) {
	mw := NewMultiWriter(failingWriter{}, &collectWriter{})
	if err := mw.WriteState(StateRow{}); !errors.Is(err, errWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	if err := mw.Close(); !errors.Is(err, errWrite) {
		t.Fatalf("expected close error, got %v", err)
	}
}

func TestMultiWriterAdminStatus(t *testing.T) {
	a := &adminCollector{}
	mw := NewMultiWriter(&collectWriter{}, a)
	mw.SetAdminStatus(true)
	if !a.status {
		t.Fatalf("admin status not forwarded")
	}
}
