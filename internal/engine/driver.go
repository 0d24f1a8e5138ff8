// Discrete-event driver owning the simulation clock
package engine

import (
	"context"
	"fmt"
	"time"

	"lorawan-sim/internal/logging"
)

// SimulationAbort is returned when a run cannot start or is cut short by a
// failing event.
type SimulationAbort struct {
	Reason string
	Err    error
}

func (e *SimulationAbort) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("simulation aborted: %s: %v", e.Reason, e.Err)
	}
	return "simulation aborted: " + e.Reason
}

func (e *SimulationAbort) Unwrap() error { return e.Err }

// Driver is a single-threaded discrete-event scheduler. Events with equal
// timestamps run in insertion order.
type Driver struct {
	now       time.Duration
	seq       uint64
	queue     eventQueue
	stopped   bool
	processed uint64
	running   bool
}

// NewDriver returns a driver with the clock at zero.
func NewDriver() *Driver {
	return &Driver{}
}

// Now returns the current simulation time.
func (d *Driver) Now() time.Duration { return d.now }

// Schedule queues action to run delay after the current time.
func (d *Driver) Schedule(delay time.Duration, action Action) error {
	if delay < 0 {
		return fmt.Errorf("schedule: negative delay %s", delay)
	}
	return d.ScheduleAt(d.now+delay, action)
}

// ScheduleAt queues action at an absolute simulation time. Times in the past are
// rejected.
func (d *Driver) ScheduleAt(at time.Duration, action Action) error {
	if at < d.now {
		return fmt.Errorf("schedule: time %s is before now %s", at, d.now)
	}
	d.seq++
	d.queue.push(&event{at: at, seq: d.seq, action: action})
	return nil
}

// Pending returns the number of queued events.
func (d *Driver) Pending() int { return d.queue.Len() }

// Processed returns how many events have been executed.
func (d *Driver) Processed() uint64 { return d.processed }

// NextEventTime returns the timestamp of the earliest queued event.
func (d *Driver) NextEventTime() (time.Duration, bool) {
	if d.queue.Len() == 0 {
		return 0, false
	}
	return d.queue.peek().at, true
}

// Stop discards every queued event. It is idempotent and may be called from
// inside an event action; effects of already executed events are kept.
func (d *Driver) Stop() {
	d.stopped = true
	d.discard()
}

func (d *Driver) discard() {
	clear(d.queue)
	d.queue = d.queue[:0]
}

// Run executes events in time order until the queue is empty, the next event
// lies beyond stop, Stop is called, or ctx is cancelled. Events past stop are
// discarded. The clock is left at the time of the last executed event.
func (d *Driver) Run(ctx context.Context, stop time.Duration) error {
	if stop <= 0 {
		return &SimulationAbort{Reason: fmt.Sprintf("stop time must be positive, got %s", stop)}
	}
	if d.running {
		return &SimulationAbort{Reason: "run already in progress"}
	}
	log := logging.FromContext(ctx)
	d.running = true
	d.stopped = false
	defer func() { d.running = false }()

	log.Debug("driver starting", "stop_time", stop, "pending", d.queue.Len())
	for d.queue.Len() > 0 && !d.stopped {
		if err := ctx.Err(); err != nil {
			d.Stop()
			return &SimulationAbort{Reason: "context cancelled", Err: err}
		}
		if d.queue.peek().at > stop {
			log.Debug("discarding events beyond stop time", "discarded", d.queue.Len())
			d.discard()
			break
		}
		ev := d.queue.pop()
		d.now = ev.at
		d.processed++
		if err := ev.action(); err != nil {
			d.Stop()
			return &SimulationAbort{Reason: fmt.Sprintf("event at %s failed", ev.at), Err: err}
		}
	}
	log.Debug("driver finished", "now", d.now, "processed", d.processed)
	return nil
}

// Reset clears the queue and rewinds the clock to zero.
func (d *Driver) Reset() {
	d.discard()
	d.now = 0
	d.seq = 0
	d.processed = 0
	d.stopped = false
}
