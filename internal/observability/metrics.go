// Package observability exposes Prometheus metrics for simulation runs.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles the metrics updated while a simulation runs.
type RunCollector struct {
	gatherer prometheus.Gatherer

	PacketsSent      prometheus.Counter
	Receptions       *prometheus.CounterVec
	OrphanReceptions prometheus.Counter
	DeliveryLatency  prometheus.Histogram
	SimTime          prometheus.Gauge
	EventsProcessed  prometheus.Gauge
	DeliveryRatio    prometheus.Gauge
	PendingPackets   prometheus.Gauge
	RunDuration      prometheus.Histogram
}

// NewRunCollector registers run metrics against reg, defaulting to the global
// registry when nil. Registering twice on the same registry reuses the
// existing collectors.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &RunCollector{gatherer: gatherer}
	var err error
	if c.PacketsSent, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lorawan_packets_sent_total",
		Help: "Packets handed to the radio engine.",
	}), "lorawan_packets_sent_total"); err != nil {
		return nil, err
	}
	if c.Receptions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lorawan_receptions_total",
		Help: "Gateway receptions, labeled by outcome.",
	}, []string{"outcome"}), "lorawan_receptions_total"); err != nil {
		return nil, err
	}
	if c.OrphanReceptions, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lorawan_orphan_receptions_total",
		Help: "Receptions for packets missing from the ledger.",
	}), "lorawan_orphan_receptions_total"); err != nil {
		return nil, err
	}
	if c.DeliveryLatency, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorawan_delivery_latency_seconds",
		Help:    "Simulated time from send to successful reception.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}), "lorawan_delivery_latency_seconds"); err != nil {
		return nil, err
	}
	if c.SimTime, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_sim_time_seconds",
		Help: "Current simulated time.",
	}), "lorawan_sim_time_seconds"); err != nil {
		return nil, err
	}
	if c.EventsProcessed, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_events_processed",
		Help: "Events executed by the driver in the current run.",
	}), "lorawan_events_processed"); err != nil {
		return nil, err
	}
	if c.DeliveryRatio, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_delivery_ratio",
		Help: "Unique deliveries over packets sent so far.",
	}), "lorawan_delivery_ratio"); err != nil {
		return nil, err
	}
	if c.PendingPackets, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_pending_packets",
		Help: "Undelivered packets still within the grace period.",
	}), "lorawan_pending_packets"); err != nil {
		return nil, err
	}
	if c.RunDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorawan_run_duration_seconds",
		Help:    "Wall-clock duration of completed runs.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}), "lorawan_run_duration_seconds"); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// PacketSent counts one send.
func (c *RunCollector) PacketSent() {
	if c == nil {
		return
	}
	c.PacketsSent.Inc()
}

// Reception counts a reception. latency is only observed for successes.
func (c *RunCollector) Reception(outcome string, success bool, latency time.Duration) {
	if c == nil {
		return
	}
	c.Receptions.WithLabelValues(outcome).Inc()
	if success {
		c.DeliveryLatency.Observe(latency.Seconds())
	}
}

// Orphan counts a reception for an unknown packet.
func (c *RunCollector) Orphan() {
	if c == nil {
		return
	}
	c.OrphanReceptions.Inc()
}

// SetProgress updates the clock and event gauges.
func (c *RunCollector) SetProgress(now time.Duration, processed uint64) {
	if c == nil {
		return
	}
	c.SimTime.Set(now.Seconds())
	c.EventsProcessed.Set(float64(processed))
}

// SetDelivery updates the delivery gauges.
func (c *RunCollector) SetDelivery(ratio float64, pending int) {
	if c == nil {
		return
	}
	c.DeliveryRatio.Set(ratio)
	c.PendingPackets.Set(float64(pending))
}

// RunFinished observes the wall-clock duration of a run.
func (c *RunCollector) RunFinished(d time.Duration) {
	if c == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
