package phys

import "math"

// Vec3 is a 3D vector in the global frame (Z up).
type Vec3 struct {
	X, Y, Z float64
}

func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Length() float64 { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// IsZero reports whether every component is exactly zero. Contact force
// filtering relies on exact zero, not a tolerance: an untouched proxy
// accumulates no force at all.
func (a Vec3) IsZero() bool { return a.X == 0 && a.Y == 0 && a.Z == 0 }

// Quat is a unit quaternion (e0 scalar first, matching the checkpoint
// file layout q0 q1 q2 q3).
type Quat struct {
	E0, E1, E2, E3 float64
}

func QIdentity() Quat { return Quat{1, 0, 0, 0} }

// QRotZ is the rotation by angle (radians) about the global Z axis.
func QRotZ(angle float64) Quat {
	return Quat{math.Cos(angle / 2), 0, 0, math.Sin(angle / 2)}
}

func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.E0*q.E0 + q.E1*q.E1 + q.E2*q.E2 + q.E3*q.E3)
	if l == 0 {
		return QIdentity()
	}
	return Quat{q.E0 / l, q.E1 / l, q.E2 / l, q.E3 / l}
}

// Deriv returns the quaternion time derivative for angular velocity w
// expressed in the global frame: q' = 0.5 * (0, w) * q.
func (q Quat) Deriv(w Vec3) Quat {
	return Quat{
		0.5 * (-w.X*q.E1 - w.Y*q.E2 - w.Z*q.E3),
		0.5 * (w.X*q.E0 + w.Y*q.E3 - w.Z*q.E2),
		0.5 * (-w.X*q.E3 + w.Y*q.E0 + w.Z*q.E1),
		0.5 * (w.X*q.E2 - w.Y*q.E1 + w.Z*q.E0),
	}
}

// Integrate advances the orientation by dt using the derivative form and
// renormalizes.
func (q Quat) Integrate(w Vec3, dt float64) Quat {
	d := q.Deriv(w)
	return Quat{
		q.E0 + d.E0*dt,
		q.E1 + d.E1*dt,
		q.E2 + d.E2*dt,
		q.E3 + d.E3*dt,
	}.Normalize()
}
