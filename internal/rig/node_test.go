package rig

import (
	"math"
	"testing"

	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/phys"
	"github.com/Bingouzi3/chrono/internal/protocol"
	"github.com/Bingouzi3/chrono/internal/testutil/testlog"
	"github.com/Bingouzi3/chrono/internal/transport"
)

// playTerrainHandshake performs the terrain's half of the handshake
// from the test body and returns the received material and topology.
func playTerrainHandshake(t *testing.T, ep transport.Endpoint, dims protocol.Dims) (protocol.Material, protocol.Topology) {
	t.Helper()
	matFrame, err := ep.Recv(protocol.KindMaterial, 0)
	if err != nil {
		t.Fatalf("recv material: %v", err)
	}
	mat, err := protocol.DecodeMaterial(matFrame)
	if err != nil {
		t.Fatalf("decode material: %v", err)
	}
	if err := ep.Send(protocol.EncodeDims(dims)); err != nil {
		t.Fatalf("send dims: %v", err)
	}
	topoFrame, err := ep.Recv(protocol.KindTopology, 0)
	if err != nil {
		t.Fatalf("recv topology: %v", err)
	}
	topo, err := protocol.DecodeTopology(topoFrame)
	if err != nil {
		t.Fatalf("decode topology: %v", err)
	}
	return mat, topo
}

func TestInitializePositionsRig(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallRigConfig()
	n := NewNode(cfg, rigEP, logging.Init("rig"))

	done := make(chan error, 1)
	go func() { done <- n.Initialize() }()

	dims := protocol.Dims{Height: 0.05, HalfLength: 0.5}
	mat, topo := playTerrainHandshake(t, terrainEP, dims)
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if mat.Friction != cfg.Rig.Friction || mat.Kn != cfg.Rig.Kn {
		t.Fatalf("handshake material %+v does not match config", mat)
	}
	if topo != n.Topology() {
		t.Fatalf("handshake topology %+v, node has %+v", topo, n.Topology())
	}

	p := n.Rim().Pos()
	if math.Abs(p.Z-(dims.Height+cfg.Rig.TireRadius)) > 1e-5 {
		t.Fatalf("rim height %g, want about %g", p.Z, dims.Height+cfg.Rig.TireRadius)
	}
	if p.X >= 0 || p.X <= -dims.HalfLength {
		t.Fatalf("rim x %g not inside the container approach", p.X)
	}
	if v := n.Rim().Vel(); v.X != cfg.Rig.InitForwardVel {
		t.Fatalf("rim forward velocity %g, want %g", v.X, cfg.Rig.InitForwardVel)
	}
}

func TestSynchronizeInjectsForces(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallRigConfig()
	n := NewNode(cfg, rigEP, logging.Init("rig"))

	done := make(chan error, 1)
	go func() { done <- n.Initialize() }()
	playTerrainHandshake(t, terrainEP, protocol.Dims{Height: 0.05, HalfLength: 0.5})
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	go func() { done <- n.Synchronize(1, 1e-4) }()
	if _, err := terrainEP.Recv(protocol.KindMeshState, 1); err != nil {
		t.Fatalf("recv mesh state: %v", err)
	}
	reply := protocol.ForceSet{
		Indices: []uint32{0, 3},
		Forces:  []phys.Vec3{{Z: 30}, {Z: 20}},
	}
	if err := terrainEP.Send(protocol.EncodeForces(1, reply)); err != nil {
		t.Fatalf("send forces: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	// The injected total counteracts gravity during Advance:
	// dvz = (F/m - g) dt.
	v0 := n.Rim().Vel()
	dt := 1e-4
	if err := n.Advance(dt); err != nil {
		t.Fatalf("advance: %v", err)
	}
	wantDvz := (50/cfg.Rig.RimMass - 9.81) * dt
	gotDvz := n.Rim().Vel().Z - v0.Z
	if math.Abs(gotDvz-wantDvz) > 1e-12 {
		t.Fatalf("rim dvz %g, want %g", gotDvz, wantDvz)
	}
}

// TestSynchronizeAppliesMoment sends a single lateral force at one
// mesh vertex and checks that the rim picks up the resulting moment
// about its center, not just the net force.
func TestSynchronizeAppliesMoment(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallRigConfig()
	n := NewNode(cfg, rigEP, logging.Init("rig"))

	done := make(chan error, 1)
	go func() { done <- n.Initialize() }()
	playTerrainHandshake(t, terrainEP, protocol.Dims{Height: 0.05, HalfLength: 0.5})
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	go func() { done <- n.Synchronize(1, 1e-4) }()
	stFrame, err := terrainEP.Recv(protocol.KindMeshState, 1)
	if err != nil {
		t.Fatalf("recv mesh state: %v", err)
	}
	st, err := protocol.DecodeMeshState(stFrame, n.Topology())
	if err != nil {
		t.Fatalf("decode mesh state: %v", err)
	}
	force := phys.V3(0, 10, 0)
	reply := protocol.ForceSet{
		Indices: []uint32{0},
		Forces:  []phys.Vec3{force},
	}
	if err := terrainEP.Send(protocol.EncodeForces(1, reply)); err != nil {
		t.Fatalf("send forces: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	lever := st.Vertices[0].Pos.Sub(n.Rim().Pos())
	moment := lever.Cross(force)
	inertia := 0.5 * cfg.Rig.RimMass * cfg.Rig.TireRadius * cfg.Rig.TireRadius

	dt := 1e-4
	if err := n.Advance(dt); err != nil {
		t.Fatalf("advance: %v", err)
	}
	want := moment.Scale(dt / inertia)
	got := n.Rim().AngVel()
	if got.Sub(want).Length() > 1e-9*(1+want.Length()) {
		t.Fatalf("rim angular velocity %+v, want %+v", got, want)
	}
	if want.IsZero() {
		t.Fatal("chosen vertex produced no moment; pick an off-center vertex")
	}
}

func TestSynchronizeRejectsOutOfRangeIndex(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallRigConfig()
	n := NewNode(cfg, rigEP, logging.Init("rig"))

	done := make(chan error, 1)
	go func() { done <- n.Initialize() }()
	playTerrainHandshake(t, terrainEP, protocol.Dims{Height: 0.05, HalfLength: 0.5})
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	go func() { done <- n.Synchronize(1, 1e-4) }()
	if _, err := terrainEP.Recv(protocol.KindMeshState, 1); err != nil {
		t.Fatalf("recv mesh state: %v", err)
	}
	bad := protocol.ForceSet{
		Indices: []uint32{n.Topology().NumVertices},
		Forces:  []phys.Vec3{{Z: 1}},
	}
	if err := terrainEP.Send(protocol.EncodeForces(1, bad)); err != nil {
		t.Fatalf("send forces: %v", err)
	}
	err := <-done
	if err == nil {
		t.Fatal("out-of-range vertex index accepted")
	}
}
