// Node deployment: roles, ids, and attachment to the radio engine
package scenario

import (
	"errors"
	"fmt"
	"time"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/radio"
)

// MobilityMode tells whether a node stays put or follows an attached trajectory.
type MobilityMode string

const (
	Static         MobilityMode = "static"
	WaypointDriven MobilityMode = "waypoint"
)

// NodeSpec describes one node to deploy.
type NodeSpec struct {
	Role     radio.DeviceConfig
	Position geo.Vector
	Mobility MobilityMode
}

// Track yields a node's position over simulation time.
type Track interface {
	PositionAt(now time.Duration) geo.Vector
}

// Node is a deployed end device or gateway.
type Node struct {
	ID     int
	Role   radio.DeviceConfig
	Mode   MobilityMode
	Handle radio.DeviceHandle

	initial geo.Vector
	track   Track
}

// ErrAlreadyBound is returned when a second trajectory is bound to a node.
var ErrAlreadyBound = errors.New("node already has a trajectory")

// Position returns where the node is at simulation time now.
func (n *Node) Position(now time.Duration) geo.Vector {
	if n.track != nil {
		return n.track.PositionAt(now)
	}
	return n.initial
}

// Bind attaches a trajectory. Only waypoint-driven nodes accept one, and only once.
func (n *Node) Bind(t Track) error {
	if n.Mode != WaypointDriven {
		return fmt.Errorf("node %d: %s node cannot follow a trajectory", n.ID, n.Mode)
	}
	if n.track != nil {
		return fmt.Errorf("node %d: %w", n.ID, ErrAlreadyBound)
	}
	n.track = t
	return nil
}

// Bound reports whether a trajectory is attached.
func (n *Node) Bound() bool { return n.track != nil }

// IsGateway reports whether the node was deployed as a gateway.
func (n *Node) IsGateway() bool { return n.Role.Role() == radio.RoleGateway }

// NodeSet holds deployed nodes indexed by id.
type NodeSet struct {
	nodes []*Node
}

// Get returns the node with the given id.
func (s *NodeSet) Get(id int) (*Node, bool) {
	if id < 0 || id >= len(s.nodes) {
		return nil, false
	}
	return s.nodes[id], true
}

// Len returns the number of deployed nodes.
func (s *NodeSet) Len() int { return len(s.nodes) }

// All returns the nodes in id order.
func (s *NodeSet) All() []*Node {
	return append([]*Node(nil), s.nodes...)
}

// EndDevices returns end devices in id order.
func (s *NodeSet) EndDevices() []*Node { return s.filter(radio.RoleEndDevice) }

// Gateways returns gateways in id order.
func (s *NodeSet) Gateways() []*Node { return s.filter(radio.RoleGateway) }

func (s *NodeSet) filter(r radio.Role) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n.Role.Role() == r {
			out = append(out, n)
		}
	}
	return out
}

// PositionFunc returns a position query bound to the clock.
func (s *NodeSet) PositionFunc(now func() time.Duration) radio.PositionFunc {
	return func(id int) geo.Vector {
		n, ok := s.Get(id)
		if !ok {
			return geo.Vector{}
		}
		return n.Position(now())
	}
}

// RoleError reports an invalid node spec.
type RoleError struct {
	Index int
	Err   error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("node spec %d: %v", e.Index, e.Err)
}

func (e *RoleError) Unwrap() error { return e.Err }

// Deploy validates every spec, then creates nodes in order and attaches each to
// the engine with the channel model. Ids are the spec indices. No events are
// scheduled.
func Deploy(att radio.Attacher, model *channel.Model, specs []NodeSpec) (*NodeSet, error) {
	for i, spec := range specs {
		if spec.Role == nil {
			return nil, &RoleError{Index: i, Err: errors.New("missing role")}
		}
		if err := spec.Role.Validate(); err != nil {
			return nil, &RoleError{Index: i, Err: err}
		}
		switch spec.Mobility {
		case "", Static:
		case WaypointDriven:
			if spec.Role.Role() == radio.RoleGateway {
				return nil, &RoleError{Index: i, Err: errors.New("gateways are fixed nodes")}
			}
		default:
			return nil, &RoleError{Index: i, Err: fmt.Errorf("unknown mobility mode %q", spec.Mobility)}
		}
	}

	set := &NodeSet{nodes: make([]*Node, 0, len(specs))}
	for i, spec := range specs {
		mode := spec.Mobility
		if mode == "" {
			mode = Static
		}
		h, err := att.Attach(i, spec.Role, model)
		if err != nil {
			return nil, fmt.Errorf("attach node %d: %w", i, err)
		}
		set.nodes = append(set.nodes, &Node{
			ID:      i,
			Role:    spec.Role,
			Mode:    mode,
			Handle:  h,
			initial: spec.Position,
		})
	}
	return set, nil
}
