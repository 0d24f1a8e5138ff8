package mobility

import (
	"fmt"
	"time"

	"lorawan-sim/internal/engine"
	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/scenario"
)

// Scheduler is the part of the event driver used to queue waypoint updates.
type Scheduler interface {
	ScheduleAt(at time.Duration, action engine.Action) error
}

// WaypointModel moves a node along a path. The reached waypoint only advances
// when the driver fires the matching waypoint event.
type WaypointModel struct {
	path    *Path
	reached int
	onMove  func(Waypoint)
}

// PositionAt interpolates between the last reached waypoint and the next one.
// Before the first waypoint fires the node sits at it.
func (m *WaypointModel) PositionAt(now time.Duration) geo.Vector {
	wps := m.path.waypoints
	if m.reached < 0 {
		return wps[0].Position
	}
	if m.reached >= len(wps)-1 {
		return wps[len(wps)-1].Position
	}
	return segment(wps[m.reached], wps[m.reached+1], now)
}

// Reached returns the index of the last waypoint event executed, or -1.
func (m *WaypointModel) Reached() int { return m.reached }

// Path returns the attached path.
func (m *WaypointModel) Path() *Path { return m.path }

// OnWaypoint registers a callback invoked after each waypoint event.
func (m *WaypointModel) OnWaypoint(fn func(Waypoint)) { m.onMove = fn }

// Attach binds p to n and queues one event per waypoint. A node can be bound once.
func Attach(sched Scheduler, n *scenario.Node, p *Path) (*WaypointModel, error) {
	if p == nil || p.Len() == 0 {
		return nil, &InvalidPathError{Field: "path", Reason: "is empty"}
	}
	m := &WaypointModel{path: p, reached: -1}
	if err := n.Bind(m); err != nil {
		return nil, err
	}
	for i, wp := range p.waypoints {
		if err := sched.ScheduleAt(wp.Time, m.advance(i)); err != nil {
			return nil, fmt.Errorf("node %d waypoint %d: %w", n.ID, i, err)
		}
	}
	return m, nil
}

func (m *WaypointModel) advance(i int) engine.Action {
	return func() error {
		m.reached = i
		if m.onMove != nil {
			m.onMove(m.path.waypoints[i])
		}
		return nil
	}
}
