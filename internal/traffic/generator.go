package traffic

import (
	"fmt"
	"math/rand/v2"
	"time"

	"lorawan-sim/internal/engine"
	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/scenario"
)

// Scheduler queues send events on the simulation clock.
type Scheduler interface {
	Now() time.Duration
	ScheduleAt(at time.Duration, action engine.Action) error
}

// Recorder stores a new ledger entry for every send.
type Recorder interface {
	RecordTransmission(sender int, packetID uint64, at time.Duration, size int) error
}

// PacketID builds a sender-generated id unique across the run.
func PacketID(nodeID int, seq uint32) uint64 {
	return uint64(nodeID)<<32 | uint64(seq)
}

// Generator turns schedules into send events. Each send records the packet
// before handing it to the radio engine.
type Generator struct {
	sched Scheduler
	rec   Recorder
	tx    radio.Transmitter
	rng   *rand.Rand
	seq   map[int]uint32
	sends int
}

// NewGenerator returns a generator drawing jitter from rng.
func NewGenerator(sched Scheduler, rec Recorder, tx radio.Transmitter, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	return &Generator{sched: sched, rec: rec, tx: tx, rng: rng, seq: make(map[int]uint32)}
}

// Sends returns the number of send events fired so far.
func (g *Generator) Sends() int { return g.sends }

// ScheduleOneShot registers a single send from n at the given time.
func (g *Generator) ScheduleOneShot(n *scenario.Node, at time.Duration, size int) error {
	if err := checkSender(n); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("node %d one-shot: packet size must be > 0", n.ID)
	}
	return g.sched.ScheduleAt(at, g.send(n, size))
}

// SchedulePeriodic registers the periodic schedule p for n. Only the next send
// is queued at any time; each fired send queues its successor.
func (g *Generator) SchedulePeriodic(n *scenario.Node, p Periodic) error {
	if err := checkSender(n); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("node %d periodic: %w", n.ID, err)
	}
	send := g.send(n, p.PacketSize)
	var k int64
	var step engine.Action
	queue := func() error {
		at, ok := p.slot(k, g.rng)
		if !ok {
			return nil
		}
		k++
		return g.sched.ScheduleAt(at, step)
	}
	step = func() error {
		if err := send(); err != nil {
			return err
		}
		return queue()
	}
	return queue()
}

func (g *Generator) send(n *scenario.Node, size int) engine.Action {
	return func() error {
		seq := g.seq[n.ID]
		g.seq[n.ID] = seq + 1
		id := PacketID(n.ID, seq)
		at := g.sched.Now()
		if err := g.rec.RecordTransmission(n.ID, id, at, size); err != nil {
			return err
		}
		g.sends++
		return g.tx.Transmit(n.Handle, id, size)
	}
}

func checkSender(n *scenario.Node) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.IsGateway() {
		return fmt.Errorf("node %d is a gateway and cannot send", n.ID)
	}
	return nil
}
