package mobility

import (
	"math"
	"time"

	"lorawan-sim/internal/geo"
)

// DefaultCirclePoints is the number of waypoints per circular traversal.
const DefaultCirclePoints = 12

// Shape produces the positions of one traversal.
type Shape interface {
	Points() ([]geo.Vector, error)
}

// Circle is a closed horizontal circle sampled at NumPoints equal angles. The
// traversal starts east of Center and runs clockwise: the first half-arc lies
// south of the centre, the second north of it.
type Circle struct {
	Center    geo.Vector
	Radius    float64
	NumPoints int
}

// Points returns the positions of one traversal.
func (c Circle) Points() ([]geo.Vector, error) {
	if c.Radius <= 0 {
		return nil, &InvalidPathError{Field: "radius", Reason: "must be > 0"}
	}
	if c.NumPoints < 3 {
		return nil, &InvalidPathError{Field: "num_points", Reason: "must be >= 3"}
	}
	pts := make([]geo.Vector, c.NumPoints)
	for i := range pts {
		theta := -2 * math.Pi * float64(i) / float64(c.NumPoints)
		pts[i] = geo.Vector{
			X: c.Center.X + c.Radius*math.Cos(theta),
			Y: c.Center.Y + c.Radius*math.Sin(theta),
			Z: c.Center.Z,
		}
	}
	return pts, nil
}

// GeneratePath repeats one traversal of shape repetitions times. Waypoint k is
// stamped start + k*step, computed from the integer index.
func GeneratePath(shape Shape, start, step time.Duration, repetitions int) (*Path, error) {
	if step <= 0 {
		return nil, &InvalidPathError{Field: "step", Reason: "must be > 0"}
	}
	if repetitions < 1 {
		return nil, &InvalidPathError{Field: "repetitions", Reason: "must be >= 1"}
	}
	if start < 0 {
		return nil, &InvalidPathError{Field: "start", Reason: "must be >= 0"}
	}
	pts, err := shape.Points()
	if err != nil {
		return nil, err
	}
	total := len(pts) * repetitions
	b := NewBuilder(total)
	for k := 0; k < total; k++ {
		b.Add(start+time.Duration(k)*step, pts[k%len(pts)])
	}
	return b.Build()
}
