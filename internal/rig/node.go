// Package rig implements the rig side of the co-simulation: the tire
// test mechanism (chassis, set-toe, rim), the contact mesh riding on
// the rim, mesh-state extraction, and injection of the terrain's vertex
// forces back into the rim dynamics.
package rig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/engine"
	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/phys"
	"github.com/Bingouzi3/chrono/internal/protocol"
	"github.com/Bingouzi3/chrono/internal/transport"
)

const gravityZ = -9.81

// Node is the rig process.
type Node struct {
	cfg config.Config
	log zerolog.Logger
	ep  transport.Endpoint

	sys     *engine.System
	chassis *engine.Body
	setToe  *engine.Body
	rim     *engine.Body

	topo  protocol.Topology
	local []phys.Vec3
	tris  []mesh.Triangle

	spinAngle float64
	slipAngle float64
	omega     float64
	slip      SlipSchedule

	dims protocol.Dims

	lastForceCount int
	lastForce      phys.Vec3
	lastMoment     phys.Vec3
}

// NewNode builds the rig mechanism. The rim carries the tire mass and
// integrates under gravity plus the terrain reaction; the chassis and
// set-toe bodies track it as bookkeeping for outputs. None of the rig
// bodies participate in collision; all contact happens terrain-side.
func NewNode(cfg config.Config, ep transport.Endpoint, log zerolog.Logger) *Node {
	sys := engine.NewSystem(phys.V3(0, 0, gravityZ), cfg.Rig.TireRadius)

	n := &Node{
		cfg:  cfg,
		log:  log,
		ep:   ep,
		sys:  sys,
		slip: DefaultSlipSchedule(),
	}

	n.chassis = sys.NewBody()
	n.chassis.SetIdentifier(1)
	n.chassis.SetKind(engine.Kinematic)
	n.chassis.SetMass(cfg.Rig.ChassisMass)
	sys.AddBody(n.chassis)

	n.setToe = sys.NewBody()
	n.setToe.SetIdentifier(2)
	n.setToe.SetKind(engine.Kinematic)
	n.setToe.SetMass(cfg.Rig.SetToeMass)
	sys.AddBody(n.setToe)

	n.rim = sys.NewBody()
	n.rim.SetIdentifier(3)
	n.rim.SetKind(engine.Dynamic)
	n.rim.SetMass(cfg.Rig.RimMass)
	ri := 0.5 * cfg.Rig.RimMass * cfg.Rig.TireRadius * cfg.Rig.TireRadius
	n.rim.SetInertia(phys.V3(ri, ri, ri))
	sys.AddBody(n.rim)

	n.buildMesh()
	n.topo = protocol.Topology{
		NumVertices:  uint32(len(n.local)),
		NumTriangles: uint32(len(n.tris)),
	}
	return n
}

func (n *Node) Role() string           { return "rig" }
func (n *Node) Rim() *engine.Body      { return n.rim }
func (n *Node) Topology() protocol.Topology { return n.topo }

// Settle is a terrain-side phase; the rig has nothing to settle.
func (n *Node) Settle() error { return nil }

// Initialize runs the rig side of the one-time handshake: send the
// tire contact material, receive the settled terrain dimensions,
// position the mechanism at ride height, and send the mesh topology.
func (n *Node) Initialize() error {
	n.sys.SetTime(0)
	rc := n.cfg.Rig

	mat := protocol.Material{
		Friction:     rc.Friction,
		Restitution:  rc.Restitution,
		YoungModulus: rc.YoungModulus,
		PoissonRatio: rc.PoissonRatio,
		Kn:           rc.Kn,
		Gn:           rc.Gn,
		Kt:           rc.Kt,
		Gt:           rc.Gt,
	}
	if err := n.ep.Send(protocol.EncodeMaterial(mat)); err != nil {
		return fmt.Errorf("rig: material handshake: %w", err)
	}

	dimsFrame, err := n.ep.Recv(protocol.KindDims, 0)
	if err != nil {
		return fmt.Errorf("rig: dims handshake: %w", err)
	}
	dims, err := protocol.DecodeDims(dimsFrame)
	if err != nil {
		return err
	}
	n.dims = dims

	// Start at one tire diameter in from the -x container wall, resting
	// on the reported surface, rolling without slip at the initial
	// forward speed. The tiny offset keeps the mesh from starting in
	// penetration.
	const contactOffset = 3e-6
	x0 := -dims.HalfLength + 2*rc.TireRadius
	z0 := dims.Height + rc.TireRadius + contactOffset
	n.rim.SetPos(phys.V3(x0, 0, z0))
	n.rim.SetVel(phys.V3(rc.InitForwardVel, 0, 0))
	// Rolling without slip: the contact point at the bottom of the
	// wheel has zero world velocity.
	n.omega = rc.InitForwardVel / rc.TireRadius
	n.trackRim()

	n.log.Info().
		Float64("x", x0).
		Float64("z", z0).
		Float64("terrain_height", dims.Height).
		Msg("positioned rig at ride height")

	if err := n.ep.Send(protocol.EncodeTopology(n.topo)); err != nil {
		return fmt.Errorf("rig: topology handshake: %w", err)
	}
	n.log.Info().
		Uint32("vertices", n.topo.NumVertices).
		Uint32("triangles", n.topo.NumTriangles).
		Msg("sent mesh topology")
	return nil
}

// Synchronize extracts the mesh state at the current rig state, sends
// it, and applies the terrain's force reply to the rim.
func (n *Node) Synchronize(step uint32, t float64) error {
	n.slipAngle = n.slip.At(t)

	st := n.extractMesh(n.slipAngle)
	out := protocol.EncodeMeshState(step, st)
	if err := n.ep.Send(out); err != nil {
		return err
	}
	observability.RecordExchange(n.Role(), "tx", len(out.Payload))

	f, err := n.ep.Recv(protocol.KindForces, step)
	if err != nil {
		return err
	}
	fs, err := protocol.DecodeForces(f)
	if err != nil {
		return err
	}
	observability.RecordExchange(n.Role(), "rx", len(f.Payload))

	// Each vertex force acts at its vertex, so lateral loads also
	// produce the aligning moment about the rim center.
	n.sys.ResetForces()
	total := phys.Vec3{}
	moment := phys.Vec3{}
	rimPos := n.rim.Pos()
	for i, idx := range fs.Indices {
		if idx >= n.topo.NumVertices {
			return fmt.Errorf("%w: force index %d outside mesh of %d vertices",
				protocol.ErrSizeMismatch, idx, n.topo.NumVertices)
		}
		fv := fs.Forces[i]
		n.rim.ApplyForceAt(fv, st.Vertices[idx].Pos)
		total = total.Add(fv)
		moment = moment.Add(st.Vertices[idx].Pos.Sub(rimPos).Cross(fv))
	}
	n.lastForceCount = len(fs.Indices)
	n.lastForce = total
	n.lastMoment = moment

	observability.RecordContactVertices(n.Role(), len(fs.Indices))
	n.log.Info().
		Uint32("step", step).
		Int("vertices_in_contact", len(fs.Indices)).
		Float64("fz", total.Z).
		Float64("mz", moment.Z).
		Msg("synchronized")
	return nil
}

// Advance integrates the rim by dt and advances the driven wheel spin.
func (n *Node) Advance(dt float64) error {
	n.sys.Step(dt)
	n.spinAngle += n.omega * dt
	n.trackRim()
	return nil
}

// trackRim keeps the bookkeeping bodies aligned with the rim: the
// chassis follows its planar position, the set-toe additionally carries
// the slip-angle yaw.
func (n *Node) trackRim() {
	p := n.rim.Pos()
	v := n.rim.Vel()
	n.chassis.SetPos(phys.V3(p.X, p.Y, p.Z))
	n.chassis.SetVel(phys.V3(v.X, v.Y, 0))
	n.setToe.SetPos(p)
	n.setToe.SetVel(v)
	n.setToe.SetRot(phys.QRotZ(n.slipAngle))
}

// OutputData appends one results row: time, rim position and velocity,
// slip angle, contacted vertex count, total terrain force, and the
// terrain moment about the rim center.
func (n *Node) OutputData(frame int) error {
	dir := n.cfg.Run.OutputDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rig: output dir: %w", err)
	}
	path := filepath.Join(dir, "rig_results.dat")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("rig: output open: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	p, v := n.rim.Pos(), n.rim.Vel()
	fmt.Fprintf(w, "%.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %d %.7e %.7e %.7e %.7e %.7e %.7e\n",
		n.sys.Time(),
		p.X, p.Y, p.Z,
		v.X, v.Y, v.Z,
		n.slipAngle,
		n.lastForceCount,
		n.lastForce.X, n.lastForce.Y, n.lastForce.Z,
		n.lastMoment.X, n.lastMoment.Y, n.lastMoment.Z)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("rig: output write: %w", err)
	}
	return nil
}
