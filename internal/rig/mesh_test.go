package rig

import (
	"math"
	"testing"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/phys"
	"github.com/Bingouzi3/chrono/internal/testutil/testlog"
)

func smallRigConfig() config.Config {
	cfg := config.Default()
	cfg.Rig.TireRadius = 0.05
	cfg.Rig.TireWidth = 0.04
	cfg.Rig.MeshSegments = 8
	cfg.Rig.MeshRings = 2
	cfg.Rig.RimMass = 1
	cfg.Rig.InitForwardVel = 0.5
	return cfg
}

func TestMeshTopology(t *testing.T) {
	testlog.Start(t)
	cfg := smallRigConfig()
	n := NewNode(cfg, nil, logging.Init("rig"))

	topo := n.Topology()
	wantV := uint32(cfg.Rig.MeshSegments * cfg.Rig.MeshRings)
	wantT := uint32(2 * cfg.Rig.MeshSegments * (cfg.Rig.MeshRings - 1))
	if topo.NumVertices != wantV {
		t.Fatalf("vertices %d, want %d", topo.NumVertices, wantV)
	}
	if topo.NumTriangles != wantT {
		t.Fatalf("triangles %d, want %d", topo.NumTriangles, wantT)
	}
	for _, tr := range n.tris {
		for _, vi := range [3]uint32{tr.V1, tr.V2, tr.V3} {
			if vi >= wantV {
				t.Fatalf("triangle references vertex %d of %d", vi, wantV)
			}
		}
	}
}

func TestMeshVerticesOnTireSurface(t *testing.T) {
	testlog.Start(t)
	cfg := smallRigConfig()
	n := NewNode(cfg, nil, logging.Init("rig"))

	for i, lv := range n.local {
		r := math.Hypot(lv.X, lv.Z)
		if math.Abs(r-cfg.Rig.TireRadius) > 1e-12 {
			t.Fatalf("vertex %d at radius %g, want %g", i, r, cfg.Rig.TireRadius)
		}
		if math.Abs(lv.Y) > cfg.Rig.TireWidth/2+1e-12 {
			t.Fatalf("vertex %d outside tire width at y=%g", i, lv.Y)
		}
	}
}

// A wheel rolling without slip has (near) zero world velocity at the
// contact point.
func TestExtractionRollingContactVelocity(t *testing.T) {
	testlog.Start(t)
	cfg := smallRigConfig()
	n := NewNode(cfg, nil, logging.Init("rig"))

	v := cfg.Rig.InitForwardVel
	n.rim.SetPos(phys.V3(0, 0, cfg.Rig.TireRadius))
	n.rim.SetVel(phys.V3(v, 0, 0))
	n.omega = v / cfg.Rig.TireRadius

	st := n.extractMesh(0)

	lowest := 0
	for i, vs := range st.Vertices {
		if vs.Pos.Z < st.Vertices[lowest].Pos.Z {
			lowest = i
		}
	}
	// The lowest mesh vertex is within one segment of the exact contact
	// point; its speed is bounded by the chord error.
	speed := st.Vertices[lowest].Vel.Length()
	segAngle := 2 * math.Pi / float64(cfg.Rig.MeshSegments)
	bound := v * segAngle
	if speed > bound {
		t.Fatalf("contact vertex speed %g exceeds rolling bound %g", speed, bound)
	}

	// The top of the wheel moves at twice the forward speed.
	highest := 0
	for i, vs := range st.Vertices {
		if vs.Pos.Z > st.Vertices[highest].Pos.Z {
			highest = i
		}
	}
	top := st.Vertices[highest].Vel
	if math.Abs(top.X-2*v) > v*segAngle || math.Abs(top.Y) > 1e-12 {
		t.Fatalf("top vertex velocity %+v, want about (%g, 0, *)", top, 2*v)
	}
}

func TestExtractionSlipYawsVelocity(t *testing.T) {
	testlog.Start(t)
	cfg := smallRigConfig()
	n := NewNode(cfg, nil, logging.Init("rig"))

	n.rim.SetPos(phys.V3(0, 0, cfg.Rig.TireRadius))
	n.omega = 1

	slip := -20 * math.Pi / 180
	st0 := n.extractMesh(0)
	st1 := n.extractMesh(slip)

	// Yaw about z preserves every vertex height and its distance from
	// the rim axis position.
	for i := range st0.Vertices {
		p0 := st0.Vertices[i].Pos
		p1 := st1.Vertices[i].Pos
		if math.Abs(p0.Z-p1.Z) > 1e-12 {
			t.Fatalf("vertex %d height changed under yaw: %g vs %g", i, p0.Z, p1.Z)
		}
		r0 := math.Hypot(p0.X, p0.Y)
		r1 := math.Hypot(p1.X, p1.Y)
		if math.Abs(r0-r1) > 1e-12 {
			t.Fatalf("vertex %d planar radius changed under yaw: %g vs %g", i, r0, r1)
		}
	}
}

func TestSlipScheduleShape(t *testing.T) {
	testlog.Start(t)
	s := DefaultSlipSchedule()

	if s.At(0) != 0 || s.At(0.2) != 0 {
		t.Fatal("slip angle nonzero before the delay")
	}
	mid := s.At(0.7)
	if math.Abs(mid-s.Final/2) > 1e-12 {
		t.Fatalf("mid-ramp slip %g, want %g", mid, s.Final/2)
	}
	if s.At(1.2) != s.Final || s.At(10) != s.Final {
		t.Fatal("slip angle not held at final value")
	}
	if s.Final >= 0 {
		t.Fatalf("default slip ramps to %g, want negative", s.Final)
	}
}
