package terrain

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/testutil/testlog"
)

// smallConfig is a bed small enough to settle within a test run.
func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Terrain.HalfLength = 0.1
	cfg.Terrain.HalfWidth = 0.1
	cfg.Terrain.HalfHeight = 0.1
	cfg.Terrain.WallThickness = 0.02
	cfg.Terrain.ParticleRadius = 0.02
	cfg.Terrain.ParticleDensity = 2000
	cfg.Terrain.NumLayers = 1
	cfg.Terrain.SettleDuration = 0.02
	cfg.Terrain.SettleStepSize = 1e-4
	cfg.Terrain.UseCheckpoint = false
	return cfg
}

func TestGranularGeneration(t *testing.T) {
	testlog.Start(t)
	cfg := smallConfig()
	n := NewNode(cfg, nil, logging.Init("terrain"))

	if n.NumParticles() == 0 {
		t.Fatal("no particles generated")
	}
	parts := n.particles()
	if len(parts) != n.NumParticles() {
		t.Fatalf("particles() returned %d, count says %d", len(parts), n.NumParticles())
	}
	for i, b := range parts {
		if b.Identifier() != cfg.Terrain.IDOffset+i {
			t.Fatalf("particle %d has identifier %d, want %d", i, b.Identifier(), cfg.Terrain.IDOffset+i)
		}
		p := b.Pos()
		if math.Abs(p.X) > cfg.Terrain.HalfLength || math.Abs(p.Y) > cfg.Terrain.HalfWidth {
			t.Fatalf("particle %d outside container at %+v", i, p)
		}
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	testlog.Start(t)
	cfg := smallConfig()
	log := logging.Init("terrain")
	a := NewNode(cfg, nil, log)
	b := NewNode(cfg, nil, log)

	if a.NumParticles() != b.NumParticles() {
		t.Fatalf("counts differ: %d vs %d", a.NumParticles(), b.NumParticles())
	}
	pa, pb := a.particles(), b.particles()
	for i := range pa {
		if pa[i].Pos() != pb[i].Pos() {
			t.Fatalf("particle %d at %+v vs %+v", i, pa[i].Pos(), pb[i].Pos())
		}
	}
}

func TestSettleComputesHeight(t *testing.T) {
	testlog.Start(t)
	cfg := smallConfig()
	n := NewNode(cfg, nil, logging.Init("terrain"))

	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	h := n.InitHeight()
	if h <= 0 {
		t.Fatalf("settled height %g, want positive", h)
	}
	// One layer of particles cannot pile higher than a few diameters.
	if h > 10*cfg.Terrain.ParticleRadius {
		t.Fatalf("settled height %g implausible for one layer of radius %g", h, cfg.Terrain.ParticleRadius)
	}
}

func TestRigidTerrainSettleIsNoop(t *testing.T) {
	testlog.Start(t)
	cfg := smallConfig()
	cfg.Terrain.Type = config.TerrainRigid
	n := NewNode(cfg, nil, logging.Init("terrain"))

	if err := n.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if n.InitHeight() != 0 {
		t.Fatalf("rigid terrain height %g, want 0", n.InitHeight())
	}
	if n.NumParticles() != 0 {
		t.Fatalf("rigid terrain generated %d particles", n.NumParticles())
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	testlog.Start(t)
	log := logging.Init("terrain")
	path := filepath.Join(t.TempDir(), "checkpoint.dat")

	cfg := smallConfig()
	a := NewNode(cfg, nil, log)
	if err := a.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := a.WriteCheckpoint(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg.Terrain.UseCheckpoint = true
	cfg.Terrain.CheckpointFile = path
	b := NewNode(cfg, nil, log)
	if err := b.Settle(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	pa, pb := a.particles(), b.particles()
	if len(pa) != len(pb) {
		t.Fatalf("particle counts differ: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		if d := pa[i].Pos().Sub(pb[i].Pos()).Length(); d > 1e-6 {
			t.Fatalf("particle %d position drifted %g through checkpoint", i, d)
		}
		if d := pa[i].Vel().Sub(pb[i].Vel()).Length(); d > 1e-6 {
			t.Fatalf("particle %d velocity drifted %g through checkpoint", i, d)
		}
	}
	if d := math.Abs(a.InitHeight() - b.InitHeight()); d > 1e-6 {
		t.Fatalf("heights differ by %g after restore", d)
	}
}

func TestCheckpointCountMismatchIsFatal(t *testing.T) {
	testlog.Start(t)
	log := logging.Init("terrain")
	path := filepath.Join(t.TempDir(), "checkpoint.dat")

	cfg := smallConfig()
	a := NewNode(cfg, nil, log)
	if err := a.Settle(); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := a.WriteCheckpoint(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A differently generated bed cannot absorb this checkpoint.
	cfg.Terrain.NumLayers = 2
	cfg.Terrain.UseCheckpoint = true
	cfg.Terrain.CheckpointFile = path
	b := NewNode(cfg, nil, log)
	if err := b.Settle(); !errors.Is(err, ErrCheckpointCount) {
		t.Fatalf("want ErrCheckpointCount, got %v", err)
	}
}
