package phys

import (
	"math"
	"testing"
)

func TestCrossRightHanded(t *testing.T) {
	got := V3(1, 0, 0).Cross(V3(0, 1, 0))
	if got != V3(0, 0, 1) {
		t.Fatalf("x cross y = %+v, want z", got)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if got := (Vec3{}).Normalize(); !got.IsZero() {
		t.Fatalf("normalize of zero = %+v", got)
	}
}

func TestQuatDerivRoundTrip(t *testing.T) {
	// A derivative computed from w must reproduce w through the inverse
	// mapping used when restoring checkpoints.
	q := QRotZ(0.7)
	w := V3(0.3, -1.2, 2.5)

	d := q.Deriv(w)
	got := Vec3{
		X: 2 * (d.E1*q.E0 - d.E0*q.E1 - d.E2*q.E3 + d.E3*q.E2),
		Y: 2 * (d.E2*q.E0 - d.E0*q.E2 - d.E3*q.E1 + d.E1*q.E3),
		Z: 2 * (d.E3*q.E0 - d.E0*q.E3 - d.E1*q.E2 + d.E2*q.E1),
	}
	if got.Sub(w).Length() > 1e-12 {
		t.Fatalf("recovered %+v, want %+v", got, w)
	}
}

func TestQuatIntegrateStaysUnit(t *testing.T) {
	q := QIdentity()
	w := V3(0, 5, 0)
	for i := 0; i < 1000; i++ {
		q = q.Integrate(w, 1e-3)
	}
	n := math.Sqrt(q.E0*q.E0 + q.E1*q.E1 + q.E2*q.E2 + q.E3*q.E3)
	if math.Abs(n-1) > 1e-12 {
		t.Fatalf("norm drifted to %g", n)
	}
}

func TestQRotZQuarterTurn(t *testing.T) {
	q := QRotZ(math.Pi / 2)
	want := Quat{math.Cos(math.Pi / 4), 0, 0, math.Sin(math.Pi / 4)}
	if q != want {
		t.Fatalf("got %+v, want %+v", q, want)
	}
}
