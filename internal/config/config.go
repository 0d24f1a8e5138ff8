// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/logging"
	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/scenario"
)

// Jitter selects the distribution added to each periodic send slot.
type Jitter struct {
	Distribution string        `yaml:"distribution"`
	Min          time.Duration `yaml:"min"`
	Max          time.Duration `yaml:"max"`
}

// Mobility describes the circular trajectory followed by mobile end devices.
type Mobility struct {
	MobileDevices int           `yaml:"mobile_devices"`
	RadiusM       float64       `yaml:"radius_m"`
	NumPoints     int           `yaml:"num_points"`
	Step          time.Duration `yaml:"step"`
	Repetitions   int           `yaml:"repetitions"`
	Start         time.Duration `yaml:"start"`
}

// OneShot is a single extra send from an end device.
type OneShot struct {
	Node       int           `yaml:"node"`
	At         time.Duration `yaml:"at"`
	PacketSize int           `yaml:"packet_size"`
}

// Radio holds the stand-in engine and device parameters.
type Radio struct {
	TxPowerDbm     float64 `yaml:"tx_power_dbm"`
	SensitivityDbm float64 `yaml:"sensitivity_dbm"`
	BitrateBps     float64 `yaml:"bitrate_bps"`
	HeaderBytes    int     `yaml:"header_bytes"`
	DeviceHeightM  float64 `yaml:"device_height_m"`
	GatewayHeightM float64 `yaml:"gateway_height_m"`
}

// Channel holds propagation parameters. Shadowing and building toggles live
// at the top level.
type Channel struct {
	PathLossExponent     float64       `yaml:"path_loss_exponent"`
	ReferenceDistanceM   float64       `yaml:"reference_distance_m"`
	ReferenceLossDb      float64       `yaml:"reference_loss_db"`
	ShadowingSigmaDb     float64       `yaml:"shadowing_sigma_db"`
	CorrelationDistanceM float64       `yaml:"correlation_distance_m"`
	PenetrationLossDb    float64       `yaml:"penetration_loss_db"`
	DelayModel           string        `yaml:"delay_model"`
	Buildings            []channel.Box `yaml:"buildings"`
}

// SimulationConfig is the root configuration of a run.
type SimulationConfig struct {
	Devices             int           `yaml:"devices"`
	Gateways            int           `yaml:"gateways"`
	DeploymentRadiusM   float64       `yaml:"deployment_radius_m"`
	GatewayRadiusM      float64       `yaml:"gateway_radius_m"`
	StopTime            time.Duration `yaml:"stop_time"`
	AppPeriod           time.Duration `yaml:"app_period"`
	PacketSize          int           `yaml:"packet_size"`
	Shadowing           bool          `yaml:"shadowing"`
	BuildingPenetration bool          `yaml:"building_penetration"`
	GracePeriod         time.Duration `yaml:"grace_period"`
	StateInterval       time.Duration `yaml:"state_interval"`
	Seed                uint64        `yaml:"seed"`
	Print               bool          `yaml:"print"`
	NodesFile           string        `yaml:"nodes_file"`

	Jitter   Jitter         `yaml:"jitter"`
	Mobility Mobility       `yaml:"mobility"`
	OneShot  []OneShot      `yaml:"one_shot"`
	Radio    Radio          `yaml:"radio"`
	Channel  Channel        `yaml:"channel"`
	Logging  logging.Config `yaml:"logging"`
}

// Defaults returns the configuration used for any field a file leaves out.
func Defaults() SimulationConfig {
	ch := channel.DefaultConfig()
	return SimulationConfig{
		Devices:           2,
		Gateways:          1,
		DeploymentRadiusM: 6000,
		GatewayRadiusM:    3000,
		StopTime:          time.Hour,
		AppPeriod:         10 * time.Second,
		PacketSize:        23,
		GracePeriod:       10 * time.Second,
		StateInterval:     time.Minute,
		Seed:              1,
		Print:             true,
		Jitter:            Jitter{Distribution: "none"},
		Mobility: Mobility{
			MobileDevices: 1,
			RadiusM:       3000,
			NumPoints:     12,
			Step:          time.Second,
			Repetitions:   200,
		},
		Radio: Radio{
			TxPowerDbm:     14,
			SensitivityDbm: -130,
			BitrateBps:     radio.DefaultLinkBudgetConfig().BitrateBps,
			HeaderBytes:    radio.DefaultLinkBudgetConfig().HeaderBytes,
			DeviceHeightM:  1.2,
			GatewayHeightM: 15,
		},
		Channel: Channel{
			PathLossExponent:     ch.PathLossExponent,
			ReferenceDistanceM:   ch.ReferenceDistance,
			ReferenceLossDb:      ch.ReferenceLossDb,
			ShadowingSigmaDb:     ch.ShadowingSigmaDb,
			CorrelationDistanceM: ch.CorrelationDistance,
			PenetrationLossDb:    ch.PenetrationLossDb,
			DelayModel:           ch.DelayModel,
		},
		Logging: logging.Config{Level: "info", Format: "text"},
	}
}

// Load validates the YAML file at configPath against the CUE schema, decodes
// it over Defaults and checks cross-field constraints. An empty schemaPath
// uses the embedded schema.
func Load(configPath, schemaPath string) (*SimulationConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateWithCue(configPath, data, schemaPath); err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over Defaults and validates the result. It does not run
// the CUE schema.
func Parse(data []byte) (*SimulationConfig, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints that span several fields.
func (c *SimulationConfig) Validate() error {
	var errs []error
	if c.Devices < 1 && c.NodesFile == "" {
		errs = append(errs, errors.New("devices must be >= 1"))
	}
	if c.Gateways < 1 && c.NodesFile == "" {
		errs = append(errs, errors.New("gateways must be >= 1"))
	}
	if c.StopTime <= 0 {
		errs = append(errs, errors.New("stop_time must be > 0"))
	}
	if c.AppPeriod <= 0 {
		errs = append(errs, errors.New("app_period must be > 0"))
	}
	if c.PacketSize <= 0 {
		errs = append(errs, errors.New("packet_size must be > 0"))
	}
	if c.Mobility.MobileDevices < 0 || (c.NodesFile == "" && c.Mobility.MobileDevices > c.Devices) {
		errs = append(errs, fmt.Errorf("mobility.mobile_devices %d out of range", c.Mobility.MobileDevices))
	}
	if c.Jitter.Max < c.Jitter.Min {
		errs = append(errs, errors.New("jitter.max must be >= jitter.min"))
	}
	for i, o := range c.OneShot {
		if o.At < 0 || o.At >= c.StopTime {
			errs = append(errs, fmt.Errorf("one_shot[%d].at %s outside run", i, o.At))
		}
		if c.NodesFile == "" && o.Node >= c.Devices {
			errs = append(errs, fmt.Errorf("one_shot[%d].node %d is not an end device", i, o.Node))
		}
	}
	return errors.Join(errs...)
}

// ChannelConfig maps the file fields onto channel.Config.
func (c *SimulationConfig) ChannelConfig() channel.Config {
	return channel.Config{
		PathLossExponent:          c.Channel.PathLossExponent,
		ReferenceDistance:         c.Channel.ReferenceDistanceM,
		ReferenceLossDb:           c.Channel.ReferenceLossDb,
		EnableShadowing:           c.Shadowing,
		ShadowingSigmaDb:          c.Channel.ShadowingSigmaDb,
		CorrelationDistance:       c.Channel.CorrelationDistanceM,
		Seed:                      c.Seed,
		EnableBuildingPenetration: c.BuildingPenetration,
		PenetrationLossDb:         c.Channel.PenetrationLossDb,
		Buildings:                 c.Channel.Buildings,
		DelayModel:                c.Channel.DelayModel,
		Speed:                     channel.SpeedOfLight,
	}
}

// LinkBudgetConfig maps the radio fields onto the stand-in engine config.
func (c *SimulationConfig) LinkBudgetConfig() radio.LinkBudgetConfig {
	return radio.LinkBudgetConfig{BitrateBps: c.Radio.BitrateBps, HeaderBytes: c.Radio.HeaderBytes}
}

// LayoutParams maps the deployment fields onto scenario.LayoutParams.
func (c *SimulationConfig) LayoutParams() scenario.LayoutParams {
	return scenario.LayoutParams{
		Devices:          c.Devices,
		Gateways:         c.Gateways,
		DeploymentRadius: c.DeploymentRadiusM,
		GatewayRadius:    c.GatewayRadiusM,
		DeviceHeight:     c.Radio.DeviceHeightM,
		GatewayHeight:    c.Radio.GatewayHeightM,
		MobileDevices:    c.Mobility.MobileDevices,
		TxPowerDbm:       c.Radio.TxPowerDbm,
		SensitivityDbm:   c.Radio.SensitivityDbm,
		Seed:             c.Seed,
	}
}
