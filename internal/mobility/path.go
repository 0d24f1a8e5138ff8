// Package mobility builds timed waypoint trajectories for mobile end devices.
package mobility

import (
	"fmt"
	"sort"
	"time"

	"lorawan-sim/internal/geo"
)

// Waypoint is a position the node reaches at Time.
type Waypoint struct {
	Time     time.Duration `json:"t"`
	Position geo.Vector    `json:"pos"`
}

// InvalidPathError reports malformed trajectory parameters.
type InvalidPathError struct {
	Field  string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path: %s %s", e.Field, e.Reason)
}

// Path is an immutable sequence of waypoints with strictly increasing times.
type Path struct {
	waypoints []Waypoint
}

// Len returns the number of waypoints.
func (p *Path) Len() int { return len(p.waypoints) }

// At returns waypoint i.
func (p *Path) At(i int) Waypoint { return p.waypoints[i] }

// Waypoints returns a copy of the waypoint sequence.
func (p *Path) Waypoints() []Waypoint {
	return append([]Waypoint(nil), p.waypoints...)
}

// Start returns the time of the first waypoint.
func (p *Path) Start() time.Duration { return p.waypoints[0].Time }

// End returns the time of the last waypoint.
func (p *Path) End() time.Duration { return p.waypoints[len(p.waypoints)-1].Time }

// PositionAt interpolates the path at t, holding the first and last positions
// outside the covered interval.
func (p *Path) PositionAt(t time.Duration) geo.Vector {
	wps := p.waypoints
	// first waypoint strictly after t
	i := sort.Search(len(wps), func(i int) bool { return wps[i].Time > t })
	switch {
	case i == 0:
		return wps[0].Position
	case i == len(wps):
		return wps[len(wps)-1].Position
	}
	return segment(wps[i-1], wps[i], t)
}

func segment(a, b Waypoint, t time.Duration) geo.Vector {
	f := float64(t-a.Time) / float64(b.Time-a.Time)
	return geo.Lerp(a.Position, b.Position, f)
}

// Builder accumulates waypoints before freezing them into a Path.
type Builder struct {
	waypoints []Waypoint
	err       error
}

// NewBuilder returns a builder with room for n waypoints.
func NewBuilder(n int) *Builder {
	return &Builder{waypoints: make([]Waypoint, 0, n)}
}

// Add appends a waypoint. Times must strictly increase; the first violation is
// reported by Build.
func (b *Builder) Add(at time.Duration, pos geo.Vector) *Builder {
	if b.err != nil {
		return b
	}
	if n := len(b.waypoints); n > 0 && at <= b.waypoints[n-1].Time {
		b.err = &InvalidPathError{
			Field:  "time",
			Reason: fmt.Sprintf("waypoint %d at %s does not follow %s", n, at, b.waypoints[n-1].Time),
		}
		return b
	}
	b.waypoints = append(b.waypoints, Waypoint{Time: at, Position: pos})
	return b
}

// Build returns the finished path. The builder must not be reused.
func (b *Builder) Build() (*Path, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.waypoints) == 0 {
		return nil, &InvalidPathError{Field: "waypoints", Reason: "path is empty"}
	}
	p := &Path{waypoints: b.waypoints}
	b.waypoints = nil
	return p, nil
}
