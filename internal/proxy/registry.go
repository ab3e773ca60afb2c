// Package proxy maintains the terrain-side placeholder bodies that
// stand in for the tire mesh during contact detection. Exactly one
// proxy exists per mesh vertex (node mode, rigid terrain) or per mesh
// triangle (face mode, granular terrain); the set is created once and
// is fixed for the run. Proxies are kinematic: each step their state is
// fully overwritten from the incoming mesh state, but they carry
// nominal mass and inertia so the engine accepts them as rigid bodies.
package proxy

import (
	"fmt"

	"github.com/Bingouzi3/chrono/internal/engine"
	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/phys"
)

// Mode selects the proxy representation. It is fixed at configuration
// time and cannot change mid-run.
type Mode int

const (
	// NodeMode uses one spherical proxy per mesh vertex.
	NodeMode Mode = iota
	// FaceMode uses one triangular proxy per mesh face.
	FaceMode
)

func (m Mode) String() string {
	if m == FaceMode {
		return "face"
	}
	return "node"
}

// collisionFamily is the exclusive family all proxies share, with
// self-collision disabled: proxies only ever contact terrain geometry.
const collisionFamily = 1

// Proxy associates one placeholder body with its mesh index.
type Proxy struct {
	Body      *engine.Body
	MeshIndex int
}

// Registry owns the proxy set for one run.
type Registry struct {
	mode Mode
	spin SpinStrategy
	sys  *engine.System

	proxies []Proxy

	nodeRadius float64
}

// Option configures a Registry.
type Option func(*Registry)

// WithSpin overrides the face-proxy angular velocity strategy.
func WithSpin(s SpinStrategy) Option {
	return func(r *Registry) { r.spin = s }
}

func NewRegistry(sys *engine.System, mode Mode, opts ...Option) *Registry {
	r := &Registry{
		mode: mode,
		spin: SpinZero,
		sys:  sys,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) Mode() Mode      { return r.mode }
func (r *Registry) Count() int      { return len(r.proxies) }
func (r *Registry) Proxies() []Proxy { return r.proxies }

// CreateNodeProxies makes one spherical proxy per mesh vertex. The
// body identifier equals the mesh vertex index.
func (r *Registry) CreateNodeProxies(numVertices int, mat engine.Material, mass, radius float64) error {
	if len(r.proxies) != 0 {
		return fmt.Errorf("proxy: registry already initialized with %d proxies", len(r.proxies))
	}
	if r.mode != NodeMode {
		return fmt.Errorf("proxy: node proxies requested in %s mode", r.mode)
	}
	r.nodeRadius = radius
	inertia := 0.4 * mass * radius * radius
	for iv := 0; iv < numVertices; iv++ {
		body := r.sys.NewBody()
		body.SetIdentifier(iv)
		body.SetKind(engine.Kinematic)
		body.SetMass(mass)
		body.SetInertia(phys.V3(inertia, inertia, inertia))
		body.SetCollide(true)
		body.SetMaterial(mat)
		body.AddSphere(radius, phys.Vec3{})
		body.SetFamily(collisionFamily)
		body.SetNoCollisionWithFamily(collisionFamily)
		r.sys.AddBody(body)
		r.proxies = append(r.proxies, Proxy{Body: body, MeshIndex: iv})
	}
	return nil
}

// CreateFaceProxies makes one triangular proxy per mesh face. The
// contact shape starts as a placeholder; it is rewritten from the mesh
// at every synchronization.
func (r *Registry) CreateFaceProxies(numTriangles int, mat engine.Material, mass float64) error {
	if len(r.proxies) != 0 {
		return fmt.Errorf("proxy: registry already initialized with %d proxies", len(r.proxies))
	}
	if r.mode != FaceMode {
		return fmt.Errorf("proxy: face proxies requested in %s mode", r.mode)
	}
	inertia := 1e-3 * mass * 0.1
	const placeholder = 0.1
	for it := 0; it < numTriangles; it++ {
		body := r.sys.NewBody()
		body.SetIdentifier(it)
		body.SetKind(engine.Kinematic)
		body.SetMass(mass)
		body.SetInertia(phys.V3(inertia, inertia, inertia))
		body.SetCollide(true)
		body.SetMaterial(mat)
		body.AddTriangle(
			phys.V3(placeholder, 0, 0),
			phys.V3(0, placeholder, 0),
			phys.V3(0, 0, placeholder),
		)
		body.SetFamily(collisionFamily)
		body.SetNoCollisionWithFamily(collisionFamily)
		r.sys.AddBody(body)
		r.proxies = append(r.proxies, Proxy{Body: body, MeshIndex: it})
	}
	return nil
}

// Update overwrites every proxy's kinematic state from the incoming
// mesh snapshot.
func (r *Registry) Update(st mesh.State) error {
	switch r.mode {
	case NodeMode:
		return r.updateNodeProxies(st)
	case FaceMode:
		return r.updateFaceProxies(st)
	default:
		return fmt.Errorf("proxy: unknown mode %d", r.mode)
	}
}

// updateNodeProxies teleports each vertex proxy to its vertex state.
// Orientation is reset to identity and angular velocity zeroed: the
// tire's rotational state is not modeled at vertex granularity.
func (r *Registry) updateNodeProxies(st mesh.State) error {
	if len(st.Vertices) != len(r.proxies) {
		return fmt.Errorf("proxy: mesh has %d vertices, registry has %d proxies",
			len(st.Vertices), len(r.proxies))
	}
	for iv, p := range r.proxies {
		p.Body.SetPos(st.Vertices[iv].Pos)
		p.Body.SetVel(st.Vertices[iv].Vel)
		p.Body.SetRot(phys.QIdentity())
		p.Body.SetAngVel(phys.Vec3{})
	}
	return nil
}

// updateFaceProxies reconstructs each triangle proxy from its three
// vertices: position at the centroid, identity orientation, linear
// velocity the mean of the vertex velocities, angular velocity from the
// configured spin strategy, and the contact shape rewritten to the
// current vertex locations.
func (r *Registry) updateFaceProxies(st mesh.State) error {
	if len(st.Triangles) != len(r.proxies) {
		return fmt.Errorf("proxy: mesh has %d triangles, registry has %d proxies",
			len(st.Triangles), len(r.proxies))
	}
	for it, p := range r.proxies {
		tr := st.Triangles[it]
		pa := st.Vertices[tr.V1].Pos
		pb := st.Vertices[tr.V2].Pos
		pc := st.Vertices[tr.V3].Pos

		pos := mesh.Centroid(st.Vertices, tr)
		p.Body.SetPos(pos)
		p.Body.SetRot(phys.QIdentity())
		p.Body.SetVel(mesh.MeanVelocity(st.Vertices, tr))
		p.Body.SetAngVel(r.spin(st, tr, pos))

		p.Body.SetTriangleShape(pa.Sub(pos), pb.Sub(pos), pc.Sub(pos))
	}
	return nil
}

// VerifyBijection checks the registry invariant: mesh indices are a
// bijection onto [0, count).
func (r *Registry) VerifyBijection() error {
	seen := make([]bool, len(r.proxies))
	for _, p := range r.proxies {
		if p.MeshIndex < 0 || p.MeshIndex >= len(r.proxies) {
			return fmt.Errorf("proxy: mesh index %d out of range [0, %d)", p.MeshIndex, len(r.proxies))
		}
		if seen[p.MeshIndex] {
			return fmt.Errorf("proxy: duplicate mesh index %d", p.MeshIndex)
		}
		seen[p.MeshIndex] = true
	}
	return nil
}

// Lowest returns the proxy with the smallest z position, for the
// per-step diagnostics log.
func (r *Registry) Lowest() (Proxy, bool) {
	if len(r.proxies) == 0 {
		return Proxy{}, false
	}
	low := r.proxies[0]
	for _, p := range r.proxies[1:] {
		if p.Body.Pos().Z < low.Body.Pos().Z {
			low = p
		}
	}
	return low, true
}
