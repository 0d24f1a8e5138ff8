package tracker

import (
	"sort"
	"time"

	"lorawan-sim/internal/radio"
)

// Counts summarises the packets sent within a window.
type Counts struct {
	Sent                int `json:"sent"`
	UniqueDelivered     int `json:"unique_delivered"`
	DuplicateDeliveries int `json:"duplicate_deliveries"`
	Failed              int `json:"failed"`
	Pending             int `json:"pending"`
}

// DeliveryRatio returns UniqueDelivered / Sent, or 0 when nothing was sent.
func (c Counts) DeliveryRatio() float64 {
	if c.Sent == 0 {
		return 0
	}
	return float64(c.UniqueDelivered) / float64(c.Sent)
}

// CountInWindow counts packets sent in [start, end). A packet is delivered once
// if any gateway received it. A packet with no successful reception is failed
// when end - sentAt exceeds the grace period and pending otherwise.
func (t *Tracker) CountInWindow(start, end time.Duration) Counts {
	var c Counts
	t.each(start, end, func(p *Packet) {
		c.Sent++
		switch ok := p.Successes(); {
		case ok > 0:
			c.UniqueDelivered++
			c.DuplicateDeliveries += ok - 1
		case end-p.SentAt > t.grace:
			c.Failed++
		default:
			c.Pending++
		}
	})
	return c
}

// Throughput returns unique deliveries per second of window. An empty or
// inverted window yields 0.
func (t *Tracker) Throughput(start, end time.Duration) float64 {
	if end <= start {
		return 0
	}
	return float64(t.CountInWindow(start, end).UniqueDelivered) / (end - start).Seconds()
}

// GatewayStats counts one gateway's receptions.
type GatewayStats struct {
	Gateway  int `json:"gateway"`
	Received int `json:"received"`
	Lost     int `json:"lost"`
}

// GatewayCounts returns per-gateway reception counts for packets sent in
// [start, end), ordered by gateway id.
func (t *Tracker) GatewayCounts(start, end time.Duration) []GatewayStats {
	byGW := map[int]*GatewayStats{}
	t.each(start, end, func(p *Packet) {
		for _, r := range p.Receptions {
			s, ok := byGW[r.Gateway]
			if !ok {
				s = &GatewayStats{Gateway: r.Gateway}
				byGW[r.Gateway] = s
			}
			if r.Outcome == radio.OutcomeSuccess {
				s.Received++
			} else {
				s.Lost++
			}
		}
	})
	out := make([]GatewayStats, 0, len(byGW))
	for _, s := range byGW {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gateway < out[j].Gateway })
	return out
}

func (t *Tracker) each(start, end time.Duration, fn func(*Packet)) {
	for _, p := range t.order {
		if p.SentAt >= start && p.SentAt < end {
			fn(p)
		}
	}
}
