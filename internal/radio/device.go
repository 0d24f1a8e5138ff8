// Contract with the PHY/MAC engine: attachment, position queries, traces
package radio

import (
	"fmt"
	"time"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/engine"
)

// Role is the network role a device is attached with.
type Role uint8

const (
	RoleEndDevice Role = iota
	RoleGateway
)

func (r Role) String() string {
	switch r {
	case RoleEndDevice:
		return "end-device"
	case RoleGateway:
		return "gateway"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// DeviceConfig is the closed set of per-role device parameters. Only EndDevice
// and Gateway implement it.
type DeviceConfig interface {
	Role() Role
	Validate() error
	isDeviceConfig()
}

// EndDevice configures a transmitting node.
type EndDevice struct {
	TxPowerDbm float64 `yaml:"tx_power_dbm" json:"tx_power_dbm"`
}

func (EndDevice) Role() Role      { return RoleEndDevice }
func (EndDevice) isDeviceConfig() {}

// Validate checks the transmit power against the regional limits.
func (e EndDevice) Validate() error {
	if e.TxPowerDbm < -10 || e.TxPowerDbm > 30 {
		return fmt.Errorf("end device tx power %.1f dBm outside [-10, 30]", e.TxPowerDbm)
	}
	return nil
}

// Gateway configures a receiving node.
type Gateway struct {
	SensitivityDbm float64 `yaml:"sensitivity_dbm" json:"sensitivity_dbm"`
}

func (Gateway) Role() Role      { return RoleGateway }
func (Gateway) isDeviceConfig() {}

func (g Gateway) Validate() error {
	if g.SensitivityDbm >= 0 {
		return fmt.Errorf("gateway sensitivity %.1f dBm must be negative", g.SensitivityDbm)
	}
	return nil
}

// DeviceHandle is the opaque token returned by Attach.
type DeviceHandle struct {
	nodeID int
	role   Role
	valid  bool
}

// NodeID returns the node the handle was issued for.
func (h DeviceHandle) NodeID() int { return h.nodeID }

// Role returns the role the device was attached with.
func (h DeviceHandle) Role() Role { return h.role }

// Valid reports whether the handle came from Attach.
func (h DeviceHandle) Valid() bool { return h.valid }

// PositionFunc is the position query the channel model invokes.
type PositionFunc = channel.PositionFunc

// Outcome of a reception attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// TraceKind distinguishes transmit and receive traces.
type TraceKind string

const (
	TraceTransmit TraceKind = "tx"
	TraceReceive  TraceKind = "rx"
)

// TraceEvent is delivered to subscribers of the trace hook. For receive traces
// NodeID is the gateway; for transmit traces it is the sender.
type TraceEvent struct {
	Kind       TraceKind
	NodeID     int
	PacketID   uint64
	Time       time.Duration
	Outcome    Outcome
	RxPowerDbm float64
	Reason     string
}

// TraceHook receives trace events on the simulation goroutine.
type TraceHook func(TraceEvent)

// Attacher registers a device with the engine.
type Attacher interface {
	Attach(nodeID int, cfg DeviceConfig, model *channel.Model) (DeviceHandle, error)
}

// Transmitter issues a transmit request for an attached end device.
type Transmitter interface {
	Transmit(h DeviceHandle, packetID uint64, size int) error
}

// Scheduler is the part of the event driver the engine needs.
type Scheduler interface {
	Now() time.Duration
	Schedule(delay time.Duration, action engine.Action) error
}
