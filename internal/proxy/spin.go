package proxy

import (
	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/phys"
)

// SpinStrategy computes a face proxy's angular velocity from the
// triangle's vertex states. The vertex velocities over-determine the
// rigid motion (a 9x6 system); with a centroidal frame the linear part
// is the velocity mean and the angular part is a 9x3 least-squares
// problem.
type SpinStrategy func(st mesh.State, tr mesh.Triangle, centroid phys.Vec3) phys.Vec3

// SpinZero leaves the angular velocity at zero. This is the reference
// behavior: a deliberate approximation, not an oversight.
func SpinZero(mesh.State, mesh.Triangle, phys.Vec3) phys.Vec3 {
	return phys.Vec3{}
}

// SpinLeastSquares solves the 9x3 angular system in a least-squares
// sense: minimize sum |w x r_i - (v_i - vbar)|^2 over the three
// vertices, via the 3x3 normal equations.
func SpinLeastSquares(st mesh.State, tr mesh.Triangle, centroid phys.Vec3) phys.Vec3 {
	idx := [3]uint32{tr.V1, tr.V2, tr.V3}
	vbar := mesh.MeanVelocity(st.Vertices, tr)

	// Normal matrix A = sum (|r|^2 I - r r^T), rhs b = sum r x (v - vbar).
	var a [3][3]float64
	var rhs phys.Vec3
	for _, vi := range idx {
		r := st.Vertices[vi].Pos.Sub(centroid)
		dv := st.Vertices[vi].Vel.Sub(vbar)
		rr := r.Dot(r)
		a[0][0] += rr - r.X*r.X
		a[0][1] += -r.X * r.Y
		a[0][2] += -r.X * r.Z
		a[1][0] += -r.Y * r.X
		a[1][1] += rr - r.Y*r.Y
		a[1][2] += -r.Y * r.Z
		a[2][0] += -r.Z * r.X
		a[2][1] += -r.Z * r.Y
		a[2][2] += rr - r.Z*r.Z
		rhs = rhs.Add(r.Cross(dv))
	}

	w, ok := solve3(a, rhs)
	if !ok {
		return phys.Vec3{}
	}
	return w
}

// solve3 solves a 3x3 linear system by Cramer's rule. Returns false on
// a (near-)singular matrix; a degenerate triangle has no well-defined
// spin.
func solve3(a [3][3]float64, b phys.Vec3) (phys.Vec3, bool) {
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if det > -1e-12 && det < 1e-12 {
		return phys.Vec3{}, false
	}
	bx := [3]float64{b.X, b.Y, b.Z}
	var x [3]float64
	for col := 0; col < 3; col++ {
		m := a
		for row := 0; row < 3; row++ {
			m[row][col] = bx[row]
		}
		d := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
			m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
			m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
		x[col] = d / det
	}
	return phys.Vec3{X: x[0], Y: x[1], Z: x[2]}, true
}
