// Package engine is the narrow dynamics interface the co-simulation
// core drives: advance by dt, cumulative contact force per body, pose
// and velocity access, and triangle contact-shape rewrite. The
// implementation is a penalty-based sphere DEM with a uniform hash-grid
// broad phase; the co-simulation protocol does not depend on any of its
// internals.
package engine

import "github.com/Bingouzi3/chrono/internal/phys"

// System owns all bodies of one process.
type System struct {
	bodies  []*Body
	gravity phys.Vec3

	grid        *spatialGrid
	numContacts int

	time float64
}

// NewSystem creates an empty system. cellSize is the broad-phase grid
// cell size; pick a few particle diameters.
func NewSystem(gravity phys.Vec3, cellSize float64) *System {
	return &System{
		gravity: gravity,
		grid:    newSpatialGrid(cellSize),
	}
}

// NewBody returns a body with identity orientation and the default
// material, not yet added to the system.
func (s *System) NewBody() *Body {
	return &Body{
		rot:      phys.QIdentity(),
		mass:     1,
		inertia:  phys.Vec3{X: 1, Y: 1, Z: 1},
		material: DefaultMaterial(),
	}
}

func (s *System) AddBody(b *Body) {
	b.seq = len(s.bodies)
	s.bodies = append(s.bodies, b)
}

func (s *System) Bodies() []*Body { return s.bodies }

func (s *System) Time() float64     { return s.time }
func (s *System) SetTime(t float64) { s.time = t }

// NumContacts is the number of contacts resolved during the last Step.
func (s *System) NumContacts() int { return s.numContacts }

// collidable reports whether the pair can generate contacts: both must
// collide, the pair must not be excluded by collision family, and at
// least one side must be able to move.
func collidable(a, b *Body) bool {
	if !a.collide || !b.collide {
		return false
	}
	if a.family != 0 && (a.family == b.noCollide || b.family == a.noCollide) {
		return false
	}
	if a.kind != Dynamic && b.kind != Dynamic {
		// Kinematic proxies still need contact forces against fixed
		// terrain geometry; only skip pairs where neither side can
		// register a meaningful exchange.
		if a.kind == Fixed && b.kind == Fixed {
			return false
		}
		if a.kind == Kinematic && b.kind == Kinematic {
			return false
		}
	}
	return true
}

// Step advances the system by dt: contact detection, penalty force
// accumulation, then integration of dynamic bodies. Kinematic bodies
// keep whatever pose was last written from outside; fixed bodies never
// move. Contact force accumulators are rewritten on every call and
// remain readable until the next Step.
func (s *System) Step(dt float64) {
	for _, b := range s.bodies {
		b.contactForce = phys.Vec3{}
	}

	s.grid.clear()
	for _, b := range s.bodies {
		if b.collide {
			s.grid.insert(b)
		}
	}

	s.numContacts = 0
	for _, pair := range s.grid.potentialPairs() {
		a, b := pair[0], pair[1]
		if !collidable(a, b) {
			continue
		}
		for _, c := range narrowPhase(a, b) {
			resolveDEM(a, b, c)
			s.numContacts++
		}
	}

	for _, b := range s.bodies {
		if b.kind != Dynamic {
			continue
		}
		acc := s.gravity
		if b.mass > 0 {
			acc = acc.Add(b.extForce.Add(b.contactForce).Scale(1 / b.mass))
		}
		b.vel = b.vel.Add(acc.Scale(dt))
		b.pos = b.pos.Add(b.vel.Scale(dt))
		if !b.extTorque.IsZero() {
			// Diagonal inertia in the global frame.
			var wdot phys.Vec3
			if b.inertia.X > 0 {
				wdot.X = b.extTorque.X / b.inertia.X
			}
			if b.inertia.Y > 0 {
				wdot.Y = b.extTorque.Y / b.inertia.Y
			}
			if b.inertia.Z > 0 {
				wdot.Z = b.extTorque.Z / b.inertia.Z
			}
			b.angVel = b.angVel.Add(wdot.Scale(dt))
		}
		if !b.angVel.IsZero() {
			b.rot = b.rot.Integrate(b.angVel, dt)
		}
	}

	s.time += dt
}

// ResetForces clears externally applied forces and torques on all
// bodies. Contact forces are managed by Step itself.
func (s *System) ResetForces() {
	for _, b := range s.bodies {
		b.extForce = phys.Vec3{}
		b.extTorque = phys.Vec3{}
	}
}
