// Cartesian positions shared by the channel, mobility, and deployment layers
package geo

import (
	"fmt"
	"math"
)

// Vector is a position in metres on a local Cartesian grid.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Distance returns the Euclidean distance between a and b in metres.
func Distance(a, b Vector) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Lerp interpolates linearly from a to b. f is clamped to [0, 1].
func Lerp(a, b Vector, f float64) Vector {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	return Vector{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		Z: a.Z + (b.Z-a.Z)*f,
	}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}
