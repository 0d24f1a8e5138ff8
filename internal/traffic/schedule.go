// Package traffic schedules application-level sends for end devices.
package traffic

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"
)

// Periodic describes a send every Period in [Start, Stop).
type Periodic struct {
	Period     time.Duration
	PacketSize int
	Start      time.Duration
	Stop       time.Duration
	Jitter     Distribution
}

// Validate checks the schedule parameters.
func (p Periodic) Validate() error {
	switch {
	case p.Period <= 0:
		return errors.New("period must be > 0")
	case p.PacketSize <= 0:
		return errors.New("packet size must be > 0")
	case p.Start < 0:
		return errors.New("start must be >= 0")
	case p.Stop <= p.Start:
		return fmt.Errorf("stop %s must be after start %s", p.Stop, p.Start)
	}
	return nil
}

// SendTimes yields Start + k*Period + jitter_k for k = 0, 1, ... until a time
// reaches Stop. Jitter is drawn from r and clamped to [0, Period).
func (p Periodic) SendTimes(r *rand.Rand) iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		for k := int64(0); ; k++ {
			at, ok := p.slot(k, r)
			if !ok || !yield(at) {
				return
			}
		}
	}
}

// slot returns the send time of slot k, or false once it reaches Stop.
func (p Periodic) slot(k int64, r *rand.Rand) (time.Duration, bool) {
	var j time.Duration
	if p.Jitter != nil {
		j = clamp(p.Jitter.Sample(r), p.Period)
	}
	at := p.Start + time.Duration(k)*p.Period + j
	return at, at < p.Stop
}

// Slots returns the number of period slots between Start and Stop.
func (p Periodic) Slots() int {
	span := p.Stop - p.Start
	n := span / p.Period
	if span%p.Period != 0 {
		n++
	}
	return int(n)
}
