// Simulation wiring channel, nodes, trajectories, traffic and the packet ledger
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/config"
	"lorawan-sim/internal/engine"
	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/logging"
	"lorawan-sim/internal/mobility"
	"lorawan-sim/internal/observability"
	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/scenario"
	"lorawan-sim/internal/tracker"
	"lorawan-sim/internal/traffic"
)

// trafficStream separates the jitter RNG from the layout and shadowing RNGs
// that share the configured seed.
const trafficStream = 0x7aff1c

// ErrAlreadyRan is returned by a second call to Run.
var ErrAlreadyRan = errors.New("simulation already ran")

// Option customises a Simulation.
type Option func(*Simulation)

// WithWriter sets the row sink. The default discards rows.
func WithWriter(w Writer) Option { return func(s *Simulation) { s.writer = w } }

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *observability.RunCollector) Option { return func(s *Simulation) { s.metrics = c } }

// WithRunID overrides the generated run id.
func WithRunID(id string) Option { return func(s *Simulation) { s.runID = id } }

// WithEpoch sets the wall-clock time that simulated time zero maps to in rows.
func WithEpoch(t time.Time) Option { return func(s *Simulation) { s.epoch = t } }

// Simulation is the context object for one run. Everything it owns is driven
// from the goroutine calling Run.
type Simulation struct {
	cfg     *config.SimulationConfig
	runID   string
	epoch   time.Time
	log     *slog.Logger
	ctx     context.Context
	driver  *engine.Driver
	model   *channel.Model
	radio   *radio.LinkBudget
	nodes   *scenario.NodeSet
	tracker *tracker.Tracker
	traffic *traffic.Generator
	tracks  []*mobility.WaypointModel
	writer  Writer
	metrics *observability.RunCollector

	err      error
	started  bool
	finished atomic.Bool
	report   Report
}

// New builds the channel model, deploys the nodes and schedules trajectories
// and traffic. Every configuration error is returned before any event is
// queued.
func New(ctx context.Context, cfg *config.SimulationConfig, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	s := &Simulation{
		cfg:     cfg,
		runID:   uuid.NewString(),
		epoch:   time.Now().UTC().Truncate(time.Second),
		log:     logging.FromContext(ctx),
		ctx:     ctx,
		driver:  engine.NewDriver(),
		tracker: tracker.New(cfg.GracePeriod),
		writer:  NopWriter{},
	}
	for _, o := range opts {
		o(s)
	}

	model, err := channel.Build(cfg.ChannelConfig())
	if err != nil {
		return nil, err
	}
	s.model = model

	specs := scenario.Layout(cfg.LayoutParams())
	if cfg.NodesFile != "" {
		if specs, err = scenario.Load(cfg.NodesFile); err != nil {
			return nil, err
		}
	}
	s.radio = radio.NewLinkBudget(s.driver, cfg.LinkBudgetConfig())
	if s.nodes, err = scenario.Deploy(s.radio, model, specs); err != nil {
		return nil, err
	}
	s.radio.SetPositionFunc(s.nodes.PositionFunc(s.driver.Now))

	paths, err := s.buildPaths()
	if err != nil {
		return nil, err
	}
	periodic, err := s.periodicSchedule()
	if err != nil {
		return nil, err
	}
	if err := s.checkOneShots(); err != nil {
		return nil, err
	}

	// configuration is valid from here on; queue the initial events
	for _, n := range s.nodes.EndDevices() {
		p, ok := paths[n.ID]
		if !ok {
			continue
		}
		m, err := mobility.Attach(s.driver, n, p)
		if err != nil {
			return nil, err
		}
		s.tracks = append(s.tracks, m)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, trafficStream))
	s.traffic = traffic.NewGenerator(s.driver, s, s.radio, rng)
	for _, n := range s.nodes.EndDevices() {
		if err := s.traffic.SchedulePeriodic(n, periodic); err != nil {
			return nil, err
		}
	}
	for _, o := range cfg.OneShot {
		n, _ := s.nodes.Get(o.Node)
		if err := s.traffic.ScheduleOneShot(n, o.At, s.oneShotSize(o)); err != nil {
			return nil, err
		}
	}
	s.radio.Subscribe(s.onTrace)
	if err := s.scheduleSample(0); err != nil {
		return nil, err
	}

	s.log.Info("simulation ready",
		"run_id", s.runID,
		"end_devices", len(s.nodes.EndDevices()),
		"gateways", len(s.nodes.Gateways()),
		"mobile", len(s.tracks),
		"stages", model.Stages(),
		"pending_events", s.driver.Pending())
	return s, nil
}

func (s *Simulation) buildPaths() (map[int]*mobility.Path, error) {
	mc := s.cfg.Mobility
	paths := make(map[int]*mobility.Path)
	for _, n := range s.nodes.EndDevices() {
		if n.Mode != scenario.WaypointDriven {
			continue
		}
		// the circle passes through the initial position, which is its east point
		start := n.Position(0)
		shape := mobility.Circle{
			Center:    geo.Vector{X: start.X - mc.RadiusM, Y: start.Y, Z: start.Z},
			Radius:    mc.RadiusM,
			NumPoints: mc.NumPoints,
		}
		p, err := mobility.GeneratePath(shape, mc.Start, mc.Step, mc.Repetitions)
		if err != nil {
			return nil, fmt.Errorf("node %d trajectory: %w", n.ID, err)
		}
		paths[n.ID] = p
	}
	return paths, nil
}

func (s *Simulation) periodicSchedule() (traffic.Periodic, error) {
	j := s.cfg.Jitter
	dist, err := traffic.ParseDistribution(j.Distribution, j.Min, j.Max)
	if err != nil {
		return traffic.Periodic{}, err
	}
	p := traffic.Periodic{
		Period:     s.cfg.AppPeriod,
		PacketSize: s.cfg.PacketSize,
		Stop:       s.cfg.StopTime,
		Jitter:     dist,
	}
	if err := p.Validate(); err != nil {
		return traffic.Periodic{}, fmt.Errorf("periodic traffic: %w", err)
	}
	return p, nil
}

func (s *Simulation) checkOneShots() error {
	for i, o := range s.cfg.OneShot {
		n, ok := s.nodes.Get(o.Node)
		if !ok || n.IsGateway() {
			return fmt.Errorf("one_shot[%d]: node %d is not an end device", i, o.Node)
		}
	}
	return nil
}

func (s *Simulation) oneShotSize(o config.OneShot) int {
	if o.PacketSize > 0 {
		return o.PacketSize
	}
	return s.cfg.PacketSize
}

// Run executes all events up to the configured stop time, freezes the ledger
// and returns the report over [0, stop).
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	if s.started {
		return Report{}, ErrAlreadyRan
	}
	s.started = true
	s.ctx = ctx
	s.log = logging.FromContext(ctx)
	s.log.Info("simulation starting", "run_id", s.runID, "stop_time", s.cfg.StopTime)

	wall := time.Now()
	err := s.driver.Run(ctx, s.cfg.StopTime)
	if err == nil {
		err = s.err
	}
	s.tracker.Freeze()
	if err != nil {
		s.log.Error("simulation aborted", "run_id", s.runID, "sim_time", s.driver.Now(), "err", err)
		return Report{}, err
	}
	s.emitState(s.cfg.StopTime)

	rep := NewReport(s.tracker, 0, s.cfg.StopTime)
	rep.RunID = s.runID
	rep.EndDevices = len(s.nodes.EndDevices())
	rep.GatewayNodes = len(s.nodes.Gateways())
	rep.MobileDevices = len(s.tracks)
	rep.EventsProcessed = s.driver.Processed()
	rep.WallTime = time.Since(wall)
	s.report = rep
	s.finished.Store(true)
	s.metrics.RunFinished(rep.WallTime)

	s.log.Info("simulation finished",
		"run_id", s.runID,
		"sent", rep.Counts.Sent,
		"delivered", rep.Counts.UniqueDelivered,
		"duplicates", rep.Counts.DuplicateDeliveries,
		"failed", rep.Counts.Failed,
		"pending", rep.Counts.Pending,
		"orphans", rep.Orphans,
		"events", rep.EventsProcessed,
		"wall_time", rep.WallTime)
	return rep, nil
}

// RecordTransmission stores a send in the ledger and exports it.
func (s *Simulation) RecordTransmission(sender int, id uint64, at time.Duration, size int) error {
	if err := s.tracker.RecordTransmission(sender, id, at, size); err != nil {
		return err
	}
	s.metrics.PacketSent()
	row := PacketRow{RunID: s.runID, PacketID: id, Sender: sender, Size: size, SentAt: at, Timestamp: s.wallTime(at)}
	if err := s.writer.WritePacket(row); err != nil {
		s.log.Error("packet write failed", "packet_id", id, "err", err)
	}
	return nil
}

func (s *Simulation) onTrace(ev radio.TraceEvent) {
	if ev.Kind != radio.TraceReceive {
		return
	}
	before := s.tracker.Orphans()
	if err := s.tracker.HandleTrace(s.ctx, ev); err != nil {
		s.fail(err)
		return
	}
	row := ReceptionRow{
		RunID:      s.runID,
		PacketID:   ev.PacketID,
		Sender:     -1,
		Gateway:    ev.NodeID,
		At:         ev.Time,
		Outcome:    string(ev.Outcome),
		Reason:     ev.Reason,
		RxPowerDbm: ev.RxPowerDbm,
		Orphan:     s.tracker.Orphans() > before,
		Timestamp:  s.wallTime(ev.Time),
	}
	if row.Orphan {
		s.metrics.Orphan()
	} else if p, ok := s.tracker.Get(ev.PacketID); ok {
		row.Sender = p.Sender
		s.metrics.Reception(outcomeLabel(row), ev.Outcome == radio.OutcomeSuccess, ev.Time-p.SentAt)
	}
	if err := s.writer.WriteReception(row); err != nil {
		s.log.Error("reception write failed", "packet_id", ev.PacketID, "err", err)
	}
}

// fail records the first error raised outside an event action and stops the
// driver.
func (s *Simulation) fail(err error) {
	if s.err == nil {
		s.err = err
	}
	s.driver.Stop()
}

func (s *Simulation) scheduleSample(at time.Duration) error {
	interval := s.cfg.StateInterval
	if interval <= 0 || at >= s.cfg.StopTime {
		return nil
	}
	return s.driver.ScheduleAt(at, func() error {
		s.emitState(at)
		return s.scheduleSample(at + interval)
	})
}

func (s *Simulation) emitState(at time.Duration) {
	row := s.State(at)
	s.metrics.SetProgress(at, row.EventsProcessed)
	ratio := 0.0
	if row.Sent > 0 {
		ratio = float64(row.Delivered) / float64(row.Sent)
	}
	s.metrics.SetDelivery(ratio, row.Pending)
	if err := s.writer.WriteState(row); err != nil {
		s.log.Error("state write failed", "sim_time", at, "err", err)
	}
}

// State summarises the ledger for packets sent before at.
func (s *Simulation) State(at time.Duration) StateRow {
	c := s.tracker.CountInWindow(0, at)
	return StateRow{
		RunID:           s.runID,
		SimTime:         at,
		Sent:            c.Sent,
		Delivered:       c.UniqueDelivered,
		Duplicates:      c.DuplicateDeliveries,
		Failed:          c.Failed,
		Pending:         c.Pending,
		Orphans:         s.tracker.Orphans(),
		Throughput:      s.tracker.Throughput(0, at),
		EventsProcessed: s.driver.Processed(),
		Timestamp:       s.wallTime(at),
	}
}

func (s *Simulation) wallTime(at time.Duration) time.Time { return s.epoch.Add(at) }

// RunID returns the id stamped on every exported row.
func (s *Simulation) RunID() string { return s.runID }

// Config returns the configuration the run was built from.
func (s *Simulation) Config() *config.SimulationConfig { return s.cfg }

// Nodes returns the deployed nodes.
func (s *Simulation) Nodes() *scenario.NodeSet { return s.nodes }

// Tracker returns the packet ledger. It is only safe to query from another
// goroutine once Finished reports true.
func (s *Simulation) Tracker() *tracker.Tracker { return s.tracker }

// Channel returns the channel model.
func (s *Simulation) Channel() *channel.Model { return s.model }

// Finished reports whether Run completed successfully.
func (s *Simulation) Finished() bool { return s.finished.Load() }

// Report returns the final report once the run finished.
func (s *Simulation) Report() (Report, bool) {
	if !s.finished.Load() {
		return Report{}, false
	}
	return s.report, true
}
