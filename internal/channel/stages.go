package channel

import (
	"math"
	"math/rand/v2"
	"time"

	"lorawan-sim/internal/geo"
)

// LogDistance is the mandatory base path-loss stage.
type LogDistance struct {
	Exponent          float64
	ReferenceDistance float64
	ReferenceLossDb   float64
}

func (LogDistance) Kind() StageKind { return StageLogDistance }

// Apply subtracts ReferenceLossDb + 10*n*log10(d/d0). Links shorter than the
// reference distance only pay the reference loss.
func (l LogDistance) Apply(in LinkInput, rxDbm float64) float64 {
	d := geo.Distance(in.Tx, in.Rx)
	if d <= l.ReferenceDistance {
		return rxDbm - l.ReferenceLossDb
	}
	return rxDbm - l.ReferenceLossDb - 10*l.Exponent*math.Log10(d/l.ReferenceDistance)
}

// CorrelatedShadowing draws a spatially correlated Gaussian field. The field is
// a grid of N(0, SigmaDb) samples spaced CorrelationDistance apart, bilinearly
// interpolated; each grid sample depends only on Seed and the cell index, so the
// stage is a pure function of the link geometry.
type CorrelatedShadowing struct {
	SigmaDb             float64
	CorrelationDistance float64
	Seed                uint64
}

func (CorrelatedShadowing) Kind() StageKind { return StageCorrelatedShadowing }

// Apply subtracts the mean of the field evaluated at both link ends.
func (s CorrelatedShadowing) Apply(in LinkInput, rxDbm float64) float64 {
	loss := (s.field(in.Tx) + s.field(in.Rx)) / 2
	return rxDbm - loss
}

func (s CorrelatedShadowing) field(p geo.Vector) float64 {
	gx := p.X / s.CorrelationDistance
	gy := p.Y / s.CorrelationDistance
	x0 := math.Floor(gx)
	y0 := math.Floor(gy)
	fx := gx - x0
	fy := gy - y0
	i, j := int64(x0), int64(y0)

	v00 := s.sample(i, j)
	v10 := s.sample(i+1, j)
	v01 := s.sample(i, j+1)
	v11 := s.sample(i+1, j+1)
	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return (top*(1-fy) + bottom*fy) * s.SigmaDb
}

func (s CorrelatedShadowing) sample(i, j int64) float64 {
	key := uint64(i)*0x9E3779B97F4A7C15 ^ uint64(j)*0xC2B2AE3D27D4EB4F
	r := rand.New(rand.NewPCG(s.Seed, key))
	return r.NormFloat64()
}

// BuildingPenetration adds LossDb for every link end located inside a building.
type BuildingPenetration struct {
	LossDb    float64
	Buildings []Box
}

func (BuildingPenetration) Kind() StageKind { return StageBuildingPenetration }

func (b BuildingPenetration) Apply(in LinkInput, rxDbm float64) float64 {
	if b.indoor(in.Tx) {
		rxDbm -= b.LossDb
	}
	if b.indoor(in.Rx) {
		rxDbm -= b.LossDb
	}
	return rxDbm
}

func (b BuildingPenetration) indoor(p geo.Vector) bool {
	for _, box := range b.Buildings {
		if box.Contains(p) {
			return true
		}
	}
	return false
}

// ConstantSpeed delays a signal by distance / Speed.
type ConstantSpeed struct {
	Speed float64
}

func (c ConstantSpeed) Delay(a, b geo.Vector) time.Duration {
	secs := geo.Distance(a, b) / c.Speed
	return time.Duration(math.Round(secs * float64(time.Second)))
}
