package engine

import (
	"math"

	"github.com/Bingouzi3/chrono/internal/phys"
)

// contact is one narrow-phase result: normal points from body A to
// body B, depth is the interpenetration.
type contact struct {
	normal phys.Vec3
	depth  float64
	point  phys.Vec3
}

// narrowPhase tests every shape pairing of the two bodies and returns
// all contacts found. Supported pairings are sphere-sphere, sphere-box
// and sphere-triangle; anything else never collides.
func narrowPhase(a, b *Body) []contact {
	var out []contact
	for _, sa := range a.shapes {
		for _, sb := range b.shapes {
			c, ok, flip := shapePair(a, sa, b, sb)
			if !ok {
				continue
			}
			if flip {
				c.normal = c.normal.Scale(-1)
			}
			out = append(out, c)
		}
	}
	return out
}

func shapePair(a *Body, sa shape, b *Body, sb shape) (contact, bool, bool) {
	switch {
	case sa.kind == shapeSphere && sb.kind == shapeSphere:
		c, ok := sphereSphere(a.pos.Add(sa.offset), sa.radius, b.pos.Add(sb.offset), sb.radius)
		return c, ok, false
	case sa.kind == shapeSphere && sb.kind == shapeBox:
		c, ok := sphereBox(a.pos.Add(sa.offset), sa.radius, b.pos.Add(sb.offset), sb.halfDims)
		return c, ok, false
	case sa.kind == shapeBox && sb.kind == shapeSphere:
		c, ok := sphereBox(b.pos.Add(sb.offset), sb.radius, a.pos.Add(sa.offset), sa.halfDims)
		return c, ok, true
	case sa.kind == shapeSphere && sb.kind == shapeTriangle:
		c, ok := sphereTriangle(a.pos.Add(sa.offset), sa.radius,
			b.pos.Add(sb.a), b.pos.Add(sb.b), b.pos.Add(sb.c))
		return c, ok, false
	case sa.kind == shapeTriangle && sb.kind == shapeSphere:
		c, ok := sphereTriangle(b.pos.Add(sb.offset), sb.radius,
			a.pos.Add(sa.a), a.pos.Add(sa.b), a.pos.Add(sa.c))
		return c, ok, true
	default:
		return contact{}, false, false
	}
}

// sphereSphere: normal points from sphere A to sphere B.
func sphereSphere(ca phys.Vec3, ra float64, cb phys.Vec3, rb float64) (contact, bool) {
	d := cb.Sub(ca)
	dist := d.Length()
	if dist >= ra+rb {
		return contact{}, false
	}
	var n phys.Vec3
	if dist > 0 {
		n = d.Scale(1 / dist)
	} else {
		n = phys.Vec3{Z: 1}
	}
	return contact{
		normal: n,
		depth:  ra + rb - dist,
		point:  ca.Add(n.Scale(ra - (ra+rb-dist)/2)),
	}, true
}

// sphereBox: normal points from the sphere to the box.
func sphereBox(c phys.Vec3, r float64, center, half phys.Vec3) (contact, bool) {
	lo := center.Sub(half)
	hi := center.Add(half)
	closest := phys.Vec3{
		X: clamp(c.X, lo.X, hi.X),
		Y: clamp(c.Y, lo.Y, hi.Y),
		Z: clamp(c.Z, lo.Z, hi.Z),
	}
	d := closest.Sub(c)
	dist := d.Length()
	if dist > 0 {
		if dist >= r {
			return contact{}, false
		}
		return contact{normal: d.Scale(1 / dist), depth: r - dist, point: closest}, true
	}

	// Center inside the box: push out along the axis of least
	// penetration.
	dx := minf(c.X-lo.X, hi.X-c.X)
	dy := minf(c.Y-lo.Y, hi.Y-c.Y)
	dz := minf(c.Z-lo.Z, hi.Z-c.Z)
	n := phys.Vec3{Z: -1}
	depth := dz + r
	if c.Z-lo.Z > hi.Z-c.Z {
		n = phys.Vec3{Z: 1}
	}
	if dx < dz && dx < dy {
		depth = dx + r
		n = phys.Vec3{X: -1}
		if c.X-lo.X > hi.X-c.X {
			n = phys.Vec3{X: 1}
		}
	} else if dy < dz {
		depth = dy + r
		n = phys.Vec3{Y: -1}
		if c.Y-lo.Y > hi.Y-c.Y {
			n = phys.Vec3{Y: 1}
		}
	}
	return contact{normal: n, depth: depth, point: c}, true
}

// sphereTriangle: normal points from the sphere to the triangle.
func sphereTriangle(c phys.Vec3, r float64, a, b, t phys.Vec3) (contact, bool) {
	p := closestPointTriangle(c, a, b, t)
	d := p.Sub(c)
	dist := d.Length()
	if dist >= r {
		return contact{}, false
	}
	var n phys.Vec3
	if dist > 0 {
		n = d.Scale(1 / dist)
	} else {
		n = b.Sub(a).Cross(t.Sub(a)).Normalize()
	}
	return contact{normal: n, depth: r - dist, point: p}, true
}

// closestPointTriangle returns the point of triangle abc closest to p.
func closestPointTriangle(p, a, b, c phys.Vec3) phys.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Scale(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Scale(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}

// resolveDEM computes the spring-damper penalty force for one contact
// and accumulates it on both bodies. Normal: Fn = kn*depth - gn*vn,
// clamped non-negative. Tangential: viscous, Coulomb-capped.
func resolveDEM(a, b *Body, c contact) {
	mat := combineMaterials(a.material, b.material)

	va := a.vel.Add(a.angVel.Cross(c.point.Sub(a.pos)))
	vb := b.vel.Add(b.angVel.Cross(c.point.Sub(b.pos)))
	rel := vb.Sub(va)

	vn := rel.Dot(c.normal)
	fn := mat.Kn*c.depth - mat.Gn*vn
	if fn < 0 {
		fn = 0
	}

	vt := rel.Sub(c.normal.Scale(vn))
	vtMag := vt.Length()
	var ft phys.Vec3
	if vtMag > 1e-12 {
		ftMag := math.Min(mat.Gt*vtMag, mat.Friction*fn)
		ft = vt.Scale(-ftMag / vtMag)
	}

	// Force on B along +normal is separating (normal points A->B), so
	// B is pushed along +n and A along -n.
	fb := c.normal.Scale(fn).Add(ft)
	b.contactForce = b.contactForce.Add(fb)
	a.contactForce = a.contactForce.Sub(fb)
}

func combineMaterials(a, b Material) Material {
	return Material{
		Friction: minf(a.Friction, b.Friction),
		Kn:       0.5 * (a.Kn + b.Kn),
		Gn:       0.5 * (a.Gn + b.Gn),
		Kt:       0.5 * (a.Kt + b.Kt),
		Gt:       0.5 * (a.Gt + b.Gt),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
