package terrain

import (
	"errors"
	"testing"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/protocol"
	"github.com/Bingouzi3/chrono/internal/testutil/testlog"
	"github.com/Bingouzi3/chrono/internal/transport"
)

// counterpart plays the rig's half of the handshake from the test body.
func runInitialize(n *Node) chan error {
	done := make(chan error, 1)
	go func() { done <- n.Initialize() }()
	return done
}

func TestInitializeHandshake(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallConfig()
	n := NewNode(cfg, terrainEP, logging.Init("terrain"))
	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	done := runInitialize(n)

	mat := protocol.Material{Friction: 0.7, Kn: 2e7, Gn: 40, Kt: 2e5, Gt: 20}
	if err := rigEP.Send(protocol.EncodeMaterial(mat)); err != nil {
		t.Fatalf("send material: %v", err)
	}

	dimsFrame, err := rigEP.Recv(protocol.KindDims, 0)
	if err != nil {
		t.Fatalf("recv dims: %v", err)
	}
	dims, err := protocol.DecodeDims(dimsFrame)
	if err != nil {
		t.Fatalf("decode dims: %v", err)
	}
	wantHeight := n.InitHeight() + cfg.Terrain.NodeProxyRadius
	if dims.Height != wantHeight {
		t.Fatalf("dims height %g, want %g", dims.Height, wantHeight)
	}
	if dims.HalfLength != cfg.Terrain.HalfLength {
		t.Fatalf("dims half length %g, want %g", dims.HalfLength, cfg.Terrain.HalfLength)
	}

	topo := protocol.Topology{NumVertices: 6, NumTriangles: 4}
	if err := rigEP.Send(protocol.EncodeTopology(topo)); err != nil {
		t.Fatalf("send topology: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Granular terrain couples through face proxies, one per triangle,
	// carrying the handshake material.
	if got := n.Registry().Count(); got != 4 {
		t.Fatalf("registry has %d proxies, want 4", got)
	}
	for _, p := range n.Registry().Proxies() {
		if p.Body.Material().Friction != mat.Friction {
			t.Fatalf("proxy friction %g, want %g", p.Body.Material().Friction, mat.Friction)
		}
		if p.Body.Material().Kn != mat.Kn {
			t.Fatalf("proxy kn %g, want %g", p.Body.Material().Kn, mat.Kn)
		}
	}
}

func TestInitializeRigidUsesNodeProxies(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallConfig()
	cfg.Terrain.Type = config.TerrainRigid
	n := NewNode(cfg, terrainEP, logging.Init("terrain"))
	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	done := runInitialize(n)

	if err := rigEP.Send(protocol.EncodeMaterial(protocol.Material{Friction: 0.9})); err != nil {
		t.Fatalf("send material: %v", err)
	}
	if _, err := rigEP.Recv(protocol.KindDims, 0); err != nil {
		t.Fatalf("recv dims: %v", err)
	}
	if err := rigEP.Send(protocol.EncodeTopology(protocol.Topology{NumVertices: 6, NumTriangles: 4})); err != nil {
		t.Fatalf("send topology: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Node mode: one proxy per vertex.
	if got := n.Registry().Count(); got != 6 {
		t.Fatalf("registry has %d proxies, want 6", got)
	}
}

func TestInitializeRejectsWrongOpening(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer rigEP.Close()
	defer terrainEP.Close()

	cfg := smallConfig()
	n := NewNode(cfg, terrainEP, logging.Init("terrain"))
	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	done := runInitialize(n)

	// A topology frame where the material is expected is a protocol
	// violation; there is no resynchronization.
	if err := rigEP.Send(protocol.EncodeTopology(protocol.Topology{NumVertices: 1})); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := <-done; !errors.Is(err, protocol.ErrKindMismatch) {
		t.Fatalf("want ErrKindMismatch, got %v", err)
	}
}

func TestInitializeRejectsMissingReply(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()
	defer terrainEP.Close()

	cfg := smallConfig()
	n := NewNode(cfg, terrainEP, logging.Init("terrain"))
	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	done := runInitialize(n)

	// Counterpart dies before sending anything.
	if err := rigEP.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-done; !errors.Is(err, protocol.ErrPeerAborted) {
		t.Fatalf("want ErrPeerAborted, got %v", err)
	}
}
