// Package terrain implements the terrain side of the co-simulation:
// container and granular material construction, the settling phase,
// checkpoint persistence, proxy management, and the per-step
// receive/update/reduce/reply exchange.
package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/engine"
	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/phys"
	"github.com/Bingouzi3/chrono/internal/protocol"
	"github.com/Bingouzi3/chrono/internal/proxy"
	"github.com/Bingouzi3/chrono/internal/transport"
)

const gravityZ = -9.81

var (
	ErrCheckpointCount = errors.New("terrain: inconsistent particle count in checkpoint")
	ErrNotInitialized  = errors.New("terrain: node not initialized")
)

// Node is the terrain process.
type Node struct {
	cfg config.Config
	log zerolog.Logger
	ep  transport.Endpoint

	sys *engine.System
	reg *proxy.Registry

	tireMaterial engine.Material

	topo      protocol.Topology
	meshState mesh.State

	numParticles  int
	particleStart int
	initHeight    float64
}

// NewNode builds the terrain system: container body, and for granular
// terrain the particle bed (layered Poisson-disk packing). Proxies are
// created later, once the mesh topology is known.
func NewNode(cfg config.Config, ep transport.Endpoint, log zerolog.Logger) *Node {
	tc := cfg.Terrain

	cell := 4 * tc.ParticleRadius
	if tc.Type == config.TerrainRigid {
		cell = 4 * tc.NodeProxyRadius
	}
	sys := engine.NewSystem(phys.V3(0, 0, gravityZ), cell)

	n := &Node{
		cfg: cfg,
		log: log,
		ep:  ep,
		sys: sys,
	}

	terrainMat := engine.Material{
		Friction: tc.Friction,
		Kn:       1.0e7,
		Gn:       1.0e3,
		Kt:       2.86e6,
		Gt:       1.0e3,
	}

	n.createContainer(terrainMat)
	n.particleStart = len(sys.Bodies())

	if tc.Type == config.TerrainGranular {
		n.createParticles(terrainMat)
		log.Info().Int("particles", n.numParticles).Msg("generated granular material")
	}

	mode := proxy.NodeMode
	if tc.Type == config.TerrainGranular {
		mode = proxy.FaceMode
	}
	n.reg = proxy.NewRegistry(sys, mode)

	return n
}

func (n *Node) Role() string           { return "terrain" }
func (n *Node) System() *engine.System { return n.sys }
func (n *Node) Registry() *proxy.Registry { return n.reg }
func (n *Node) InitHeight() float64    { return n.initHeight }
func (n *Node) NumParticles() int      { return n.numParticles }

// createContainer adds the fixed container: bottom box plus four
// walls, dimensioned by half-extents.
func (n *Node) createContainer(mat engine.Material) {
	tc := n.cfg.Terrain
	hx, hy, hz, ht := tc.HalfLength, tc.HalfWidth, tc.HalfHeight, tc.WallThickness

	c := n.sys.NewBody()
	c.SetIdentifier(-1)
	c.SetKind(engine.Fixed)
	c.SetMass(1)
	c.SetCollide(true)
	c.SetMaterial(mat)

	// Bottom
	c.AddBox(phys.V3(hx, hy, ht), phys.V3(0, 0, -ht))
	// Front / rear
	c.AddBox(phys.V3(ht, hy, hz+ht), phys.V3(hx+ht, 0, hz-ht))
	c.AddBox(phys.V3(ht, hy, hz+ht), phys.V3(-hx-ht, 0, hz-ht))
	// Left / right
	c.AddBox(phys.V3(hx, ht, hz+ht), phys.V3(0, hy+ht, hz-ht))
	c.AddBox(phys.V3(hx, ht, hz+ht), phys.V3(0, -hy-ht, hz-ht))

	n.sys.AddBody(c)
}

// createParticles fills the container with spherical particles in
// layers, Poisson-disk sampled in each layer. Identifiers start at the
// configured offset so granular bodies are distinguishable from
// everything else in the system.
func (n *Node) createParticles(mat engine.Material) {
	tc := n.cfg.Terrain
	r := tc.ParticleRadius
	rho := tc.ParticleDensity
	vol := (4.0 / 3.0) * math.Pi * r * r * r
	mass := rho * vol
	inertia := 0.4 * mass * r * r

	sep := 1.01 * r
	hx := tc.HalfLength - sep
	hy := tc.HalfWidth - sep
	centerZ := 2 * sep

	id := tc.IDOffset
	gen := newSampler(int64(tc.IDOffset))
	for layer := 0; layer < tc.NumLayers; layer++ {
		points := gen.poissonDisk(hx, hy, 2*sep)
		for _, pt := range points {
			b := n.sys.NewBody()
			b.SetIdentifier(id)
			b.SetKind(engine.Dynamic)
			b.SetMass(mass)
			b.SetInertia(phys.V3(inertia, inertia, inertia))
			b.SetCollide(true)
			b.SetMaterial(mat)
			b.AddSphere(r, phys.Vec3{})
			b.SetPos(phys.V3(pt.X, pt.Y, centerZ))
			n.sys.AddBody(b)
			id++
		}
		centerZ += 2 * sep
	}
	n.numParticles = id - tc.IDOffset
}

// particles returns the granular bodies in identifier order. Creation
// order is identifier order; checkpoint restore depends on that.
func (n *Node) particles() []*engine.Body {
	out := make([]*engine.Body, 0, n.numParticles)
	for _, b := range n.sys.Bodies()[n.particleStart:] {
		if b.Identifier() >= n.cfg.Terrain.IDOffset {
			out = append(out, b)
		}
	}
	return out
}

// Initialize runs the terrain side of the one-time handshake:
// - receive the tire contact material
// - send settled terrain height (adjusted for proxy dimension) and the
//   container half-length
// - receive the mesh topology and size the proxy registry to it
// A missing or malformed reply is fatal; there are no retries.
func (n *Node) Initialize() error {
	n.sys.SetTime(0)
	tc := n.cfg.Terrain

	matFrame, err := n.ep.Recv(protocol.KindMaterial, 0)
	if err != nil {
		return fmt.Errorf("terrain: material handshake: %w", err)
	}
	mat, err := protocol.DecodeMaterial(matFrame)
	if err != nil {
		return err
	}
	n.tireMaterial = engine.Material{
		Friction:    mat.Friction,
		Restitution: mat.Restitution,
		Kn:          mat.Kn,
		Gn:          mat.Gn,
		Kt:          mat.Kt,
		Gt:          mat.Gt,
	}
	n.log.Info().Float64("friction", mat.Friction).Msg("received tire material")

	dims := protocol.Dims{
		Height:     n.initHeight + tc.NodeProxyRadius,
		HalfLength: tc.HalfLength,
	}
	if err := n.ep.Send(protocol.EncodeDims(dims)); err != nil {
		return fmt.Errorf("terrain: dims handshake: %w", err)
	}
	n.log.Info().
		Float64("height", dims.Height).
		Float64("half_length", dims.HalfLength).
		Msg("sent initial terrain dimensions")

	topoFrame, err := n.ep.Recv(protocol.KindTopology, 0)
	if err != nil {
		return fmt.Errorf("terrain: topology handshake: %w", err)
	}
	topo, err := protocol.DecodeTopology(topoFrame)
	if err != nil {
		return err
	}
	n.topo = topo
	n.log.Info().
		Uint32("vertices", topo.NumVertices).
		Uint32("triangles", topo.NumTriangles).
		Msg("received mesh topology")

	switch tc.Type {
	case config.TerrainRigid:
		err = n.reg.CreateNodeProxies(int(topo.NumVertices), n.tireMaterial, tc.NodeProxyMass, tc.NodeProxyRadius)
	case config.TerrainGranular:
		err = n.reg.CreateFaceProxies(int(topo.NumTriangles), n.tireMaterial, tc.FaceProxyMass)
	}
	if err != nil {
		return err
	}
	return n.reg.VerifyBijection()
}

// Synchronize receives the step's mesh state, overwrites the proxies,
// reduces contact forces to per-vertex forces, and replies. No forces
// are reported at step 0.
func (n *Node) Synchronize(step uint32, t float64) error {
	if n.reg.Count() == 0 {
		return ErrNotInitialized
	}

	f, err := n.ep.Recv(protocol.KindMeshState, step)
	if err != nil {
		return err
	}
	st, err := protocol.DecodeMeshState(f, n.topo)
	if err != nil {
		return err
	}
	n.meshState = st
	observability.RecordExchange(n.Role(), "rx", len(f.Payload))

	if err := n.reg.Update(st); err != nil {
		return err
	}

	fs := n.reg.ReduceForces(step, st)
	reply := protocol.EncodeForces(step, fs)
	if err := n.ep.Send(reply); err != nil {
		return err
	}
	observability.RecordExchange(n.Role(), "tx", len(reply.Payload))
	observability.RecordContactVertices(n.Role(), len(fs.Indices))

	n.log.Info().
		Uint32("step", step).
		Int("contacts", n.sys.NumContacts()).
		Int("vertices_in_contact", len(fs.Indices)).
		Msg("synchronized")

	if low, ok := n.reg.Lowest(); ok {
		n.log.Debug().
			Int("index", low.MeshIndex).
			Float64("height", low.Body.Pos().Z).
			Msg("lowest proxy")
	}
	return nil
}

// Advance steps the terrain dynamics by dt.
func (n *Node) Advance(dt float64) error {
	n.sys.Step(dt)
	return nil
}
