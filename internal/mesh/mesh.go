// Package mesh holds the tire contact-surface state exchanged between
// the rig and terrain nodes each step. The rig owns the mesh; the
// terrain side only ever sees per-step copies.
package mesh

import "github.com/Bingouzi3/chrono/internal/phys"

// VertexState is one mesh vertex position and velocity. The vertex
// index is implicit in array position.
type VertexState struct {
	Pos phys.Vec3
	Vel phys.Vec3
}

// Triangle references three vertices of the current step's vertex
// array. Connectivity is resent every step even though it rarely
// changes.
type Triangle struct {
	V1, V2, V3 uint32
}

// State is a full mesh snapshot for one step.
type State struct {
	Vertices  []VertexState
	Triangles []Triangle
}

// Centroid returns the center of the three vertices of triangle tr.
func Centroid(vs []VertexState, tr Triangle) phys.Vec3 {
	return vs[tr.V1].Pos.Add(vs[tr.V2].Pos).Add(vs[tr.V3].Pos).Scale(1.0 / 3.0)
}

// MeanVelocity returns the arithmetic mean of the three vertex
// velocities of triangle tr.
func MeanVelocity(vs []VertexState, tr Triangle) phys.Vec3 {
	return vs[tr.V1].Vel.Add(vs[tr.V2].Vel).Add(vs[tr.V3].Vel).Scale(1.0 / 3.0)
}

// BarycentricCoords returns the barycentric coordinates (a1, a2, a3) of
// point p with respect to the triangle {v1, v2, v3}.
func BarycentricCoords(v1, v2, v3, p phys.Vec3) phys.Vec3 {
	v12 := v2.Sub(v1)
	v13 := v3.Sub(v1)
	v1p := p.Sub(v1)

	d1212 := v12.Dot(v12)
	d1213 := v12.Dot(v13)
	d1313 := v13.Dot(v13)
	d1p12 := v1p.Dot(v12)
	d1p13 := v1p.Dot(v13)

	denom := d1212*d1313 - d1213*d1213

	a2 := (d1313*d1p12 - d1213*d1p13) / denom
	a3 := (d1212*d1p13 - d1213*d1p12) / denom
	return phys.Vec3{X: 1 - a2 - a3, Y: a2, Z: a3}
}
