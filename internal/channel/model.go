// Propagation chain composed from ordered loss stages
package channel

import (
	"time"

	"lorawan-sim/internal/geo"
)

// PositionFunc returns the current location of a node. The channel model calls
// it for both ends of a link.
type PositionFunc func(nodeID int) geo.Vector

// StageKind names a loss stage.
type StageKind string

const (
	StageLogDistance         StageKind = "log-distance"
	StageCorrelatedShadowing StageKind = "correlated-shadowing"
	StageBuildingPenetration StageKind = "building-penetration"
)

// LinkInput is the geometry a stage works on.
type LinkInput struct {
	TxID int
	RxID int
	Tx   geo.Vector
	Rx   geo.Vector
}

// Stage attenuates the received power of one link.
type Stage interface {
	Kind() StageKind
	Apply(in LinkInput, rxDbm float64) float64
}

// DelayModel computes the propagation delay between two points.
type DelayModel interface {
	Delay(a, b geo.Vector) time.Duration
}

// Link is the outcome of evaluating the model for one transmitter/receiver pair.
type Link struct {
	Distance   float64
	RxPowerDbm float64
	LossDb     float64
	Delay      time.Duration
}

// Model is an immutable channel: a fixed sequence of loss stages plus a delay model.
type Model struct {
	stages []Stage
	delay  DelayModel
}

// Build validates cfg and assembles the loss chain. The log-distance stage is
// always first; shadowing and building penetration follow in that order.
func Build(cfg Config) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stages := []Stage{LogDistance{
		Exponent:          cfg.PathLossExponent,
		ReferenceDistance: cfg.ReferenceDistance,
		ReferenceLossDb:   cfg.ReferenceLossDb,
	}}
	if cfg.EnableShadowing {
		stages = append(stages, CorrelatedShadowing{
			SigmaDb:             cfg.ShadowingSigmaDb,
			CorrelationDistance: cfg.CorrelationDistance,
			Seed:                cfg.Seed,
		})
		if cfg.EnableBuildingPenetration {
			stages = append(stages, BuildingPenetration{
				LossDb:    cfg.PenetrationLossDb,
				Buildings: append([]Box(nil), cfg.Buildings...),
			})
		}
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = SpeedOfLight
	}
	return &Model{stages: stages, delay: ConstantSpeed{Speed: speed}}, nil
}

// Stages returns the stage kinds in application order.
func (m *Model) Stages() []StageKind {
	kinds := make([]StageKind, len(m.stages))
	for i, s := range m.stages {
		kinds[i] = s.Kind()
	}
	return kinds
}

// RxPower folds every stage over txPowerDbm.
func (m *Model) RxPower(in LinkInput, txPowerDbm float64) float64 {
	rx := txPowerDbm
	for _, s := range m.stages {
		rx = s.Apply(in, rx)
	}
	return rx
}

// Link resolves both node positions through pos and evaluates the chain.
func (m *Model) Link(pos PositionFunc, txID, rxID int, txPowerDbm float64) Link {
	in := LinkInput{TxID: txID, RxID: rxID, Tx: pos(txID), Rx: pos(rxID)}
	rx := m.RxPower(in, txPowerDbm)
	return Link{
		Distance:   geo.Distance(in.Tx, in.Rx),
		RxPowerDbm: rx,
		LossDb:     txPowerDbm - rx,
		Delay:      m.delay.Delay(in.Tx, in.Rx),
	}
}
