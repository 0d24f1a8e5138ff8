package scenario

import (
	"errors"
	"math"
	"testing"
	"time"

	"lorawan-sim/internal/channel"
	"lorawan-sim/internal/geo"
	"lorawan-sim/internal/radio"
)

// MockAttacher records attachment calls.
type MockAttacher struct {
	Calls []radio.Role
	IDs   []int
}

func (m *MockAttacher) Attach(id int, cfg radio.DeviceConfig, model *channel.Model) (radio.DeviceHandle, error) {
	m.Calls = append(m.Calls, cfg.Role())
	m.IDs = append(m.IDs, id)
	return radio.DeviceHandle{}, nil
}

type fixedTrack geo.Vector

func (f fixedTrack) PositionAt(time.Duration) geo.Vector { return geo.Vector(f) }

func testModel(t *testing.T) *channel.Model {
	t.Helper()
	m, err := channel.Build(channel.DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestDeployAssignsIDsInOrder(t *testing.T) {
	specs := []NodeSpec{
		{Role: radio.EndDevice{TxPowerDbm: 14}, Position: geo.Vector{X: 1}},
		{Role: radio.EndDevice{TxPowerDbm: 14}, Mobility: WaypointDriven},
		{Role: radio.Gateway{SensitivityDbm: -130}, Position: geo.Vector{Z: 15}},
	}
	att := &MockAttacher{}
	set, err := Deploy(att, testModel(t), specs)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", set.Len())
	}
	for i := 0; i < 3; i++ {
		n, ok := set.Get(i)
		if !ok || n.ID != i || att.IDs[i] != i {
			t.Fatalf("node %d not queryable by id", i)
		}
	}
	if att.Calls[2] != radio.RoleGateway || att.Calls[0] != radio.RoleEndDevice {
		t.Fatalf("unexpected roles %v", att.Calls)
	}
	if len(set.EndDevices()) != 2 || len(set.Gateways()) != 1 {
		t.Fatalf("role filters wrong")
	}
	n0, _ := set.Get(0)
	if n0.Mode != Static || n0.Position(time.Hour) != (geo.Vector{X: 1}) {
		t.Fatalf("static node moved: %+v", n0)
	}
	if _, ok := set.Get(3); ok {
		t.Fatal("id 3 should not exist")
	}
}

func TestDeployValidatesBeforeAttaching(t *testing.T) {
	specs := []NodeSpec{
		{Role: radio.EndDevice{TxPowerDbm: 14}},
		{Role: radio.Gateway{SensitivityDbm: 3}},
	}
	att := &MockAttacher{}
	_, err := Deploy(att, testModel(t), specs)
	var rerr *RoleError
	if !errors.As(err, &rerr) || rerr.Index != 1 {
		t.Fatalf("expected RoleError at index 1, got %v", err)
	}
	if len(att.Calls) != 0 {
		t.Fatalf("no node should be attached on validation failure")
	}
}

func TestDeployRejectsMobileGateway(t *testing.T) {
	specs := []NodeSpec{{Role: radio.Gateway{SensitivityDbm: -130}, Mobility: WaypointDriven}}
	if _, err := Deploy(&MockAttacher{}, testModel(t), specs); err == nil {
		t.Fatal("expected error for mobile gateway")
	}
}

func TestBindOnlyOnceAndOnlyWaypointNodes(t *testing.T) {
	specs := []NodeSpec{
		{Role: radio.EndDevice{TxPowerDbm: 14}},
		{Role: radio.EndDevice{TxPowerDbm: 14}, Mobility: WaypointDriven},
	}
	set, _ := Deploy(&MockAttacher{}, testModel(t), specs)
	static, _ := set.Get(0)
	if err := static.Bind(fixedTrack{X: 5}); err == nil {
		t.Fatal("static node accepted a trajectory")
	}
	mobile, _ := set.Get(1)
	if err := mobile.Bind(fixedTrack{X: 5}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := mobile.Bind(fixedTrack{X: 6}); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	pos := set.PositionFunc(func() time.Duration { return 0 })
	if pos(1).X != 5 {
		t.Fatalf("position query should follow the track, got %v", pos(1))
	}
}

func TestLayout(t *testing.T) {
	p := LayoutParams{
		Devices: 20, Gateways: 3, DeploymentRadius: 6000, GatewayRadius: 1000,
		DeviceHeight: 1.2, GatewayHeight: 15, MobileDevices: 2,
		TxPowerDbm: 14, SensitivityDbm: -130, Seed: 1,
	}
	specs := Layout(p)
	if len(specs) != 23 {
		t.Fatalf("expected 23 specs, got %d", len(specs))
	}
	for i, s := range specs[:20] {
		if s.Role.Role() != radio.RoleEndDevice {
			t.Fatalf("spec %d should be an end device", i)
		}
		if r := math.Hypot(s.Position.X, s.Position.Y); r > 6000 {
			t.Fatalf("device %d outside deployment radius: %f", i, r)
		}
		wantMobile := i >= 18
		if (s.Mobility == WaypointDriven) != wantMobile {
			t.Fatalf("device %d mobility %s", i, s.Mobility)
		}
	}
	for _, s := range specs[20:] {
		if s.Role.Role() != radio.RoleGateway {
			t.Fatalf("expected gateway, got %v", s.Role.Role())
		}
	}
	again := Layout(p)
	for i := range specs {
		if specs[i].Position != again[i].Position {
			t.Fatalf("layout not deterministic at %d", i)
		}
	}
}

func TestLoadNodes(t *testing.T) {
	specs, err := Load("testdata/nodes.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(specs))
	}
	if specs[1].Mobility != WaypointDriven {
		t.Fatalf("node 1 should be waypoint-driven")
	}
	gw, ok := specs[2].Role.(radio.Gateway)
	if !ok || gw.SensitivityDbm != -130 {
		t.Fatalf("unexpected gateway role %#v", specs[2].Role)
	}
}

func TestLoadRejectsForeignRoleFields(t *testing.T) {
	_, err := Load("testdata/bad_role.yaml")
	var rerr *RoleError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RoleError, got %v", err)
	}
}
