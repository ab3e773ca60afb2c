package rig

import (
	"math"

	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/phys"
)

// buildMesh lays out the tire contact surface as a cylindrical band:
// segments vertices around the circumference, rings across the width.
// Vertices are stored in the unspun wheel frame; triangles wrap around
// the circumference, so the topology is fixed for the run.
func (n *Node) buildMesh() {
	rc := n.cfg.Rig
	segs, rings := rc.MeshSegments, rc.MeshRings
	r, w := rc.TireRadius, rc.TireWidth

	n.local = make([]phys.Vec3, 0, segs*rings)
	for is := 0; is < segs; is++ {
		phi := 2 * math.Pi * float64(is) / float64(segs)
		for ir := 0; ir < rings; ir++ {
			y := -w/2 + w*float64(ir)/float64(rings-1)
			n.local = append(n.local, phys.V3(r*math.Cos(phi), y, r*math.Sin(phi)))
		}
	}

	n.tris = n.tris[:0]
	vid := func(is, ir int) uint32 { return uint32((is%segs)*rings + ir) }
	for is := 0; is < segs; is++ {
		for ir := 0; ir < rings-1; ir++ {
			a, b := vid(is, ir), vid(is+1, ir)
			c, d := vid(is, ir+1), vid(is+1, ir+1)
			n.tris = append(n.tris,
				mesh.Triangle{V1: a, V2: b, V3: c},
				mesh.Triangle{V1: b, V2: d, V3: c},
			)
		}
	}
}

func rotY(v phys.Vec3, th float64) phys.Vec3 {
	c, s := math.Cos(th), math.Sin(th)
	return phys.V3(v.X*c+v.Z*s, v.Y, -v.X*s+v.Z*c)
}

func rotZ(v phys.Vec3, th float64) phys.Vec3 {
	c, s := math.Cos(th), math.Sin(th)
	return phys.V3(v.X*c-v.Y*s, v.X*s+v.Y*c, v.Z)
}

// extractMesh snapshots the contact surface in world coordinates at the
// rig's current state: each vertex rides rigidly on the rim, spun by
// the wheel angle and yawed by the slip angle, with velocity composed
// from the rim's linear velocity and the wheel's angular velocity.
func (n *Node) extractMesh(slipAngle float64) mesh.State {
	pos := n.rim.Pos()
	vel := n.rim.Vel()
	omega := rotZ(phys.V3(0, n.omega, 0), slipAngle)

	st := mesh.State{
		Vertices:  make([]mesh.VertexState, len(n.local)),
		Triangles: n.tris,
	}
	for i, lv := range n.local {
		r := rotZ(rotY(lv, n.spinAngle), slipAngle)
		st.Vertices[i].Pos = pos.Add(r)
		st.Vertices[i].Vel = vel.Add(omega.Cross(r))
	}
	return st
}
