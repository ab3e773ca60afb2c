package engine

import "github.com/Bingouzi3/chrono/internal/phys"

// Kind selects how a body participates in time integration. Kinematic
// bodies bypass the integrator entirely; their pose is overwritten from
// outside each step, but they still participate in collision and
// accumulate contact forces.
type Kind int

const (
	Dynamic Kind = iota
	Kinematic
	Fixed
)

// Material is the contact surface material of a body.
type Material struct {
	Friction    float64
	Restitution float64
	Kn, Gn      float64
	Kt, Gt      float64
}

// DefaultMaterial matches the terrain defaults of the reference setup.
func DefaultMaterial() Material {
	return Material{
		Friction: 0.9,
		Kn:       1.0e7,
		Gn:       1.0e3,
		Kt:       2.86e6,
		Gt:       1.0e3,
	}
}

type shapeKind int

const (
	shapeSphere shapeKind = iota
	shapeBox
	shapeTriangle
)

// shape is one collision shape attached to a body. Boxes are
// axis-aligned half-dimension boxes at a local offset; triangles carry
// their vertices as local offsets from the body position.
type shape struct {
	kind     shapeKind
	radius   float64   // sphere
	halfDims phys.Vec3 // box
	offset   phys.Vec3 // sphere center / box center, local
	a, b, c  phys.Vec3 // triangle vertices, local
}

// Body is one rigid body in the system.
type Body struct {
	id   int
	seq  int
	kind Kind

	mass    float64
	inertia phys.Vec3

	pos    phys.Vec3
	rot    phys.Quat
	vel    phys.Vec3
	angVel phys.Vec3

	extForce     phys.Vec3
	extTorque    phys.Vec3
	contactForce phys.Vec3

	collide   bool
	family    int
	noCollide int

	material Material
	shapes   []shape
}

func (b *Body) Identifier() int      { return b.id }
func (b *Body) SetIdentifier(id int) { b.id = id }

func (b *Body) Kind() Kind        { return b.kind }
func (b *Body) SetKind(k Kind)    { b.kind = k }
func (b *Body) Mass() float64     { return b.mass }
func (b *Body) SetMass(m float64) { b.mass = m }

func (b *Body) SetInertia(i phys.Vec3) { b.inertia = i }

func (b *Body) Pos() phys.Vec3     { return b.pos }
func (b *Body) Rot() phys.Quat     { return b.rot }
func (b *Body) Vel() phys.Vec3     { return b.vel }
func (b *Body) AngVel() phys.Vec3  { return b.angVel }
func (b *Body) SetPos(p phys.Vec3) { b.pos = p }
func (b *Body) SetRot(q phys.Quat) { b.rot = q }
func (b *Body) SetVel(v phys.Vec3) { b.vel = v }
func (b *Body) SetAngVel(w phys.Vec3) { b.angVel = w }

// RotDeriv is the quaternion time derivative for the body's current
// angular velocity, the form persisted in checkpoints.
func (b *Body) RotDeriv() phys.Quat { return b.rot.Deriv(b.angVel) }

// SetRotDeriv sets the angular velocity from a quaternion derivative:
// w = 2 * q' * conj(q), vector part.
func (b *Body) SetRotDeriv(d phys.Quat) {
	q := b.rot
	b.angVel = phys.Vec3{
		X: 2 * (d.E1*q.E0 - d.E0*q.E1 - d.E2*q.E3 + d.E3*q.E2),
		Y: 2 * (d.E2*q.E0 - d.E0*q.E2 - d.E3*q.E1 + d.E1*q.E3),
		Z: 2 * (d.E3*q.E0 - d.E0*q.E3 - d.E1*q.E2 + d.E2*q.E1),
	}
}

func (b *Body) SetCollide(c bool)        { b.collide = c }
func (b *Body) SetMaterial(m Material)   { b.material = m }
func (b *Body) Material() Material       { return b.material }
func (b *Body) ApplyForce(f phys.Vec3)   { b.extForce = b.extForce.Add(f) }
func (b *Body) ApplyTorque(t phys.Vec3)  { b.extTorque = b.extTorque.Add(t) }

// ApplyForceAt accumulates a force acting at world point p: the force
// itself plus its moment about the body position.
func (b *Body) ApplyForceAt(f, p phys.Vec3) {
	b.extForce = b.extForce.Add(f)
	b.extTorque = b.extTorque.Add(p.Sub(b.pos).Cross(f))
}

// SetFamily assigns the body to a collision family.
func (b *Body) SetFamily(f int) { b.family = f }

// SetNoCollisionWithFamily disables contact generation between this
// body and any body of family f.
func (b *Body) SetNoCollisionWithFamily(f int) { b.noCollide = f }

// ContactForce is the cumulative contact force accumulated during the
// last Step (or contact evaluation).
func (b *Body) ContactForce() phys.Vec3 { return b.contactForce }

func (b *Body) AddSphere(radius float64, offset phys.Vec3) {
	b.shapes = append(b.shapes, shape{kind: shapeSphere, radius: radius, offset: offset})
}

func (b *Body) AddBox(halfDims, offset phys.Vec3) {
	b.shapes = append(b.shapes, shape{kind: shapeBox, halfDims: halfDims, offset: offset})
}

func (b *Body) AddTriangle(a, c2, c3 phys.Vec3) {
	b.shapes = append(b.shapes, shape{kind: shapeTriangle, a: a, b: c2, c: c3})
}

// SetTriangleShape rewrites the body's triangular contact shape with
// new local vertex offsets. The proxy registry uses this to track the
// deforming tire mesh exactly; the engine's storage layout stays its
// own implementation detail.
func (b *Body) SetTriangleShape(p0, p1, p2 phys.Vec3) {
	for i := range b.shapes {
		if b.shapes[i].kind == shapeTriangle {
			b.shapes[i].a, b.shapes[i].b, b.shapes[i].c = p0, p1, p2
			return
		}
	}
	b.AddTriangle(p0, p1, p2)
}

// aabb is a conservative axis-aligned bound of all shapes at the
// current pose. Shape offsets are treated as translations only; proxy
// and particle bodies all carry identity orientation.
func (b *Body) aabb() (min, max phys.Vec3) {
	first := true
	expand := func(lo, hi phys.Vec3) {
		if first {
			min, max = lo, hi
			first = false
			return
		}
		min = phys.Vec3{X: minf(min.X, lo.X), Y: minf(min.Y, lo.Y), Z: minf(min.Z, lo.Z)}
		max = phys.Vec3{X: maxf(max.X, hi.X), Y: maxf(max.Y, hi.Y), Z: maxf(max.Z, hi.Z)}
	}
	for _, s := range b.shapes {
		switch s.kind {
		case shapeSphere:
			c := b.pos.Add(s.offset)
			r := phys.Vec3{X: s.radius, Y: s.radius, Z: s.radius}
			expand(c.Sub(r), c.Add(r))
		case shapeBox:
			c := b.pos.Add(s.offset)
			expand(c.Sub(s.halfDims), c.Add(s.halfDims))
		case shapeTriangle:
			pa := b.pos.Add(s.a)
			pb := b.pos.Add(s.b)
			pc := b.pos.Add(s.c)
			lo := phys.Vec3{
				X: minf(pa.X, minf(pb.X, pc.X)),
				Y: minf(pa.Y, minf(pb.Y, pc.Y)),
				Z: minf(pa.Z, minf(pb.Z, pc.Z)),
			}
			hi := phys.Vec3{
				X: maxf(pa.X, maxf(pb.X, pc.X)),
				Y: maxf(pa.Y, maxf(pb.Y, pc.Y)),
				Z: maxf(pa.Z, maxf(pb.Z, pc.Z)),
			}
			expand(lo, hi)
		}
	}
	if first {
		min, max = b.pos, b.pos
	}
	return min, max
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
