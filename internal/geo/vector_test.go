package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	d := Distance(Vector{X: 0, Y: 0, Z: 0}, Vector{X: 3, Y: 4, Z: 0})
	if math.Abs(d-5) > 1e-9 {
		t.Fatalf("expected 5, got %f", d)
	}
}

func TestLerpClamps(t *testing.T) {
	a := Vector{X: 0}
	b := Vector{X: 10}
	if got := Lerp(a, b, 0.5); got.X != 5 {
		t.Fatalf("midpoint = %v", got)
	}
	if got := Lerp(a, b, -1); got != a {
		t.Fatalf("expected a, got %v", got)
	}
	if got := Lerp(a, b, 2); got != b {
		t.Fatalf("expected b, got %v", got)
	}
}
