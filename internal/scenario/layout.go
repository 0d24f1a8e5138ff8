package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/radio"
)

// LayoutParams controls the generated deployment.
type LayoutParams struct {
	Devices          int
	Gateways         int
	DeploymentRadius float64 // end devices are spread uniformly in this disc
	GatewayRadius    float64 // ring radius when there is more than one gateway
	DeviceHeight     float64
	GatewayHeight    float64
	MobileDevices    int // the last MobileDevices end devices are waypoint-driven
	TxPowerDbm       float64
	SensitivityDbm   float64
	Seed             uint64
}

// Layout returns end devices first, then gateways. Device placement depends only
// on the seed.
func Layout(p LayoutParams) []NodeSpec {
	rng := rand.New(rand.NewPCG(p.Seed, 0x5ce7a110))
	specs := make([]NodeSpec, 0, p.Devices+p.Gateways)
	for i := 0; i < p.Devices; i++ {
		r := p.DeploymentRadius * math.Sqrt(rng.Float64())
		theta := rng.Float64() * 2 * math.Pi
		mode := Static
		if i >= p.Devices-p.MobileDevices {
			mode = WaypointDriven
		}
		specs = append(specs, NodeSpec{
			Role:     radio.EndDevice{TxPowerDbm: p.TxPowerDbm},
			Position: geo.Vector{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: p.DeviceHeight},
			Mobility: mode,
		})
	}
	for i := 0; i < p.Gateways; i++ {
		pos := geo.Vector{Z: p.GatewayHeight}
		if p.Gateways > 1 {
			angle := float64(i) / float64(p.Gateways) * 2 * math.Pi
			pos.X = p.GatewayRadius * math.Cos(angle)
			pos.Y = p.GatewayRadius * math.Sin(angle)
		}
		specs = append(specs, NodeSpec{
			Role:     radio.Gateway{SensitivityDbm: p.SensitivityDbm},
			Position: pos,
			Mobility: Static,
		})
	}
	return specs
}

type nodeEntry struct {
	Role           string     `yaml:"role"`
	Position       geo.Vector `yaml:"position"`
	Mobility       string     `yaml:"mobility,omitempty"`
	TxPowerDbm     *float64   `yaml:"tx_power_dbm,omitempty"`
	SensitivityDbm *float64   `yaml:"sensitivity_dbm,omitempty"`
}

type nodeFile struct {
	Nodes []nodeEntry `yaml:"nodes"`
}

// Load reads an explicit node list from a YAML file.
func Load(path string) ([]NodeSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	var f nodeFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse nodes: %w", err)
	}
	specs := make([]NodeSpec, 0, len(f.Nodes))
	for i, n := range f.Nodes {
		spec := NodeSpec{Position: n.Position, Mobility: MobilityMode(n.Mobility)}
		switch n.Role {
		case "end-device", "ed":
			if n.SensitivityDbm != nil {
				return nil, &RoleError{Index: i, Err: fmt.Errorf("sensitivity_dbm is a gateway field")}
			}
			ed := radio.EndDevice{TxPowerDbm: 14}
			if n.TxPowerDbm != nil {
				ed.TxPowerDbm = *n.TxPowerDbm
			}
			spec.Role = ed
		case "gateway", "gw":
			if n.TxPowerDbm != nil {
				return nil, &RoleError{Index: i, Err: fmt.Errorf("tx_power_dbm is an end device field")}
			}
			gw := radio.Gateway{SensitivityDbm: -130}
			if n.SensitivityDbm != nil {
				gw.SensitivityDbm = *n.SensitivityDbm
			}
			spec.Role = gw
		default:
			return nil, &RoleError{Index: i, Err: fmt.Errorf("unknown role %q", n.Role)}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
