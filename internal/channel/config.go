package channel

import (
	"fmt"

	"lorawan-sim/internal/geo"
)

// Delay model names accepted by Build.
const (
	DelayConstantSpeed = "constant-speed"
)

// SpeedOfLight is the default propagation speed in m/s.
const SpeedOfLight = 299792458.0

// Box is an axis-aligned building footprint.
type Box struct {
	Min geo.Vector `yaml:"min" json:"min"`
	Max geo.Vector `yaml:"max" json:"max"`
}

// Contains reports whether p lies inside the box, boundaries included.
func (b Box) Contains(p geo.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Config describes the propagation chain handed to Build.
type Config struct {
	PathLossExponent  float64
	ReferenceDistance float64 // metres
	ReferenceLossDb   float64

	EnableShadowing     bool
	ShadowingSigmaDb    float64
	CorrelationDistance float64 // metres, shadowing grid cell size
	Seed                uint64

	// EnableBuildingPenetration is only honoured when EnableShadowing is set.
	EnableBuildingPenetration bool
	PenetrationLossDb         float64
	Buildings                 []Box

	DelayModel string
	Speed      float64 // m/s, constant-speed delay model
}

// DefaultConfig returns the log-distance parameters used by the reference
// LoRaWAN scenarios (exponent 3.76, 7.7 dB at 1 m).
func DefaultConfig() Config {
	return Config{
		PathLossExponent:    3.76,
		ReferenceDistance:   1,
		ReferenceLossDb:     7.7,
		ShadowingSigmaDb:    4,
		CorrelationDistance: 110,
		PenetrationLossDb:   12,
		DelayModel:          DelayConstantSpeed,
		Speed:               SpeedOfLight,
	}
}

// ConfigError reports an invalid channel parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("channel config: %s %s", e.Field, e.Reason)
}

func (c Config) validate() error {
	if c.PathLossExponent <= 0 {
		return &ConfigError{Field: "path_loss_exponent", Reason: "must be > 0"}
	}
	if c.ReferenceDistance <= 0 {
		return &ConfigError{Field: "reference_distance", Reason: "must be > 0"}
	}
	switch c.DelayModel {
	case "", DelayConstantSpeed:
	default:
		return &ConfigError{Field: "delay_model", Reason: fmt.Sprintf("unknown model %q", c.DelayModel)}
	}
	if c.Speed < 0 {
		return &ConfigError{Field: "speed", Reason: "must be >= 0"}
	}
	if c.EnableShadowing {
		if c.ShadowingSigmaDb < 0 {
			return &ConfigError{Field: "shadowing_sigma_db", Reason: "must be >= 0"}
		}
		if c.CorrelationDistance <= 0 {
			return &ConfigError{Field: "correlation_distance", Reason: "must be > 0"}
		}
	}
	return nil
}
