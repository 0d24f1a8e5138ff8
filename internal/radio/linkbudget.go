package radio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"lorawan-sim/internal/channel"
)

// LinkBudgetConfig parameterises the threshold engine.
type LinkBudgetConfig struct {
	BitrateBps  float64 // physical bitrate used for airtime
	HeaderBytes int     // PHY+MAC overhead added to every payload
}

// DefaultLinkBudgetConfig approximates SF7 at 125 kHz with a LoRaWAN header.
func DefaultLinkBudgetConfig() LinkBudgetConfig {
	return LinkBudgetConfig{BitrateBps: 5470, HeaderBytes: 13}
}

type attached struct {
	handle DeviceHandle
	cfg    DeviceConfig
	model  *channel.Model
}

// LinkBudget is a minimal stand-in for the radio engine: a transmission reaches
// a gateway when the received power after the channel chain is at or above the
// gateway sensitivity. There is no interference, duty cycle, or MAC.
type LinkBudget struct {
	sched    Scheduler
	cfg      LinkBudgetConfig
	devices  map[int]attached
	gateways []int
	pos      PositionFunc
	hooks    []TraceHook
}

// NewLinkBudget creates an engine that schedules receptions on sched.
func NewLinkBudget(sched Scheduler, cfg LinkBudgetConfig) *LinkBudget {
	if cfg.BitrateBps <= 0 {
		cfg.BitrateBps = DefaultLinkBudgetConfig().BitrateBps
	}
	return &LinkBudget{sched: sched, cfg: cfg, devices: make(map[int]attached)}
}

// Attach registers nodeID with its role and channel model.
func (e *LinkBudget) Attach(nodeID int, cfg DeviceConfig, model *channel.Model) (DeviceHandle, error) {
	if cfg == nil {
		return DeviceHandle{}, errors.New("attach: nil device config")
	}
	if model == nil {
		return DeviceHandle{}, errors.New("attach: nil channel model")
	}
	if _, ok := e.devices[nodeID]; ok {
		return DeviceHandle{}, fmt.Errorf("attach: node %d already attached", nodeID)
	}
	h := DeviceHandle{nodeID: nodeID, role: cfg.Role(), valid: true}
	e.devices[nodeID] = attached{handle: h, cfg: cfg, model: model}
	if cfg.Role() == RoleGateway {
		e.gateways = append(e.gateways, nodeID)
	}
	return h, nil
}

// SetPositionFunc installs the position query used for every link evaluation.
func (e *LinkBudget) SetPositionFunc(pos PositionFunc) { e.pos = pos }

// Subscribe adds a trace hook.
func (e *LinkBudget) Subscribe(h TraceHook) { e.hooks = append(e.hooks, h) }

// Airtime returns the on-air duration of a payload of size bytes.
func (e *LinkBudget) Airtime(size int) time.Duration {
	bits := float64((size + e.cfg.HeaderBytes) * 8)
	return time.Duration(math.Round(bits / e.cfg.BitrateBps * float64(time.Second)))
}

// Transmit evaluates the link from the sender to every gateway and schedules a
// receive trace at arrival time.
func (e *LinkBudget) Transmit(h DeviceHandle, packetID uint64, size int) error {
	if !h.Valid() {
		return errors.New("transmit: invalid device handle")
	}
	dev, ok := e.devices[h.NodeID()]
	if !ok {
		return fmt.Errorf("transmit: node %d not attached", h.NodeID())
	}
	ed, ok := dev.cfg.(EndDevice)
	if !ok {
		return fmt.Errorf("transmit: node %d is a %s", h.NodeID(), h.Role())
	}
	if e.pos == nil {
		return errors.New("transmit: no position function installed")
	}
	e.emit(TraceEvent{Kind: TraceTransmit, NodeID: h.NodeID(), PacketID: packetID, Time: e.sched.Now()})

	airtime := e.Airtime(size)
	for _, gwID := range e.gateways {
		gw := e.devices[gwID]
		link := dev.model.Link(e.pos, h.NodeID(), gwID, ed.TxPowerDbm)
		ev := TraceEvent{
			Kind:       TraceReceive,
			NodeID:     gwID,
			PacketID:   packetID,
			Outcome:    OutcomeSuccess,
			RxPowerDbm: link.RxPowerDbm,
		}
		if sens := gw.cfg.(Gateway).SensitivityDbm; link.RxPowerDbm < sens {
			ev.Outcome = OutcomeFailure
			ev.Reason = "under-sensitivity"
		}
		if err := e.sched.Schedule(link.Delay+airtime, func() error {
			ev.Time = e.sched.Now()
			e.emit(ev)
			return nil
		}); err != nil {
			return fmt.Errorf("transmit: schedule reception: %w", err)
		}
	}
	return nil
}

func (e *LinkBudget) emit(ev TraceEvent) {
	for _, h := range e.hooks {
		h(ev)
	}
}
