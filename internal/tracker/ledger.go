// Package tracker keeps the packet ledger and derives delivery metrics from it.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"lorawan-sim/internal/radio"
)

// DefaultGracePeriod is how long an undelivered packet counts as pending.
const DefaultGracePeriod = 10 * time.Second

// ErrLedgerFrozen is returned for writes after the run finished.
var ErrLedgerFrozen = errors.New("packet ledger is frozen")

// DuplicatePacketIdError means a sender reused a packet id.
type DuplicatePacketIdError struct {
	PacketID uint64
	Sender   int
}

func (e *DuplicatePacketIdError) Error() string {
	return fmt.Sprintf("duplicate packet id %#x from node %d", e.PacketID, e.Sender)
}

// OrphanReceptionWarning reports a reception for a packet the ledger never saw.
// It is not fatal.
type OrphanReceptionWarning struct {
	Gateway  int
	PacketID uint64
	At       time.Duration
}

func (w *OrphanReceptionWarning) Error() string {
	return fmt.Sprintf("orphan reception of packet %#x at gateway %d (t=%s)", w.PacketID, w.Gateway, w.At)
}

// Reception is one gateway's observation of a packet.
type Reception struct {
	Gateway int           `json:"gateway"`
	At      time.Duration `json:"at"`
	Outcome radio.Outcome `json:"outcome"`
	Reason  string        `json:"reason,omitempty"`
}

// Packet is a ledger entry. Receptions are appended, never removed.
type Packet struct {
	ID         uint64        `json:"id"`
	Sender     int           `json:"sender"`
	Size       int           `json:"size"`
	SentAt     time.Duration `json:"sent_at"`
	Receptions []Reception   `json:"receptions"`
}

// Successes returns the number of successful receptions.
func (p *Packet) Successes() int {
	n := 0
	for _, r := range p.Receptions {
		if r.Outcome == radio.OutcomeSuccess {
			n++
		}
	}
	return n
}

// Tracker owns the packet ledger. It is written only from the simulation
// goroutine and needs no locking.
type Tracker struct {
	grace   time.Duration
	packets map[uint64]*Packet
	order   []*Packet
	orphans int
	frozen  bool
}

// New returns an empty tracker. A non-positive grace selects DefaultGracePeriod.
func New(grace time.Duration) *Tracker {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Tracker{grace: grace, packets: make(map[uint64]*Packet)}
}

// GracePeriod returns the pending window used by CountInWindow.
func (t *Tracker) GracePeriod() time.Duration { return t.grace }

// RecordTransmission adds a new packet to the ledger.
func (t *Tracker) RecordTransmission(sender int, id uint64, at time.Duration, size int) error {
	if t.frozen {
		return ErrLedgerFrozen
	}
	if _, ok := t.packets[id]; ok {
		return &DuplicatePacketIdError{PacketID: id, Sender: sender}
	}
	p := &Packet{ID: id, Sender: sender, Size: size, SentAt: at}
	t.packets[id] = p
	t.order = append(t.order, p)
	return nil
}

// RecordReception appends a reception to the packet's entry. Unknown ids only
// increment the orphan counter and return an *OrphanReceptionWarning.
func (t *Tracker) RecordReception(gateway int, id uint64, at time.Duration, outcome radio.Outcome, reason string) error {
	if t.frozen {
		return ErrLedgerFrozen
	}
	p, ok := t.packets[id]
	if !ok {
		t.orphans++
		return &OrphanReceptionWarning{Gateway: gateway, PacketID: id, At: at}
	}
	p.Receptions = append(p.Receptions, Reception{Gateway: gateway, At: at, Outcome: outcome, Reason: reason})
	return nil
}

// Orphans returns the number of receptions for unknown packets.
func (t *Tracker) Orphans() int { return t.orphans }

// Len returns the number of packets in the ledger.
func (t *Tracker) Len() int { return len(t.order) }

// Get returns the ledger entry for id.
func (t *Tracker) Get(id uint64) (Packet, bool) {
	p, ok := t.packets[id]
	if !ok {
		return Packet{}, false
	}
	return clone(p), true
}

// Packets returns copies of all entries in transmission order.
func (t *Tracker) Packets() []Packet {
	out := make([]Packet, len(t.order))
	for i, p := range t.order {
		out[i] = clone(p)
	}
	return out
}

func clone(p *Packet) Packet {
	c := *p
	c.Receptions = append([]Reception(nil), p.Receptions...)
	return c
}

// Freeze rejects further writes until Unfreeze.
func (t *Tracker) Freeze() { t.frozen = true }

// Unfreeze allows writes again, for a subsequent run.
func (t *Tracker) Unfreeze() { t.frozen = false }

// Frozen reports whether the ledger is read-only.
func (t *Tracker) Frozen() bool { return t.frozen }
