package driver_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/driver"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/protocol"
	"github.com/Bingouzi3/chrono/internal/rig"
	"github.com/Bingouzi3/chrono/internal/terrain"
	"github.com/Bingouzi3/chrono/internal/testutil/testlog"
	"github.com/Bingouzi3/chrono/internal/transport"
)

func cosimConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Run.Steps = 10
	cfg.Run.StepSize = 1e-4
	cfg.Run.OutputEvery = 5
	cfg.Run.OutputDir = t.TempDir()

	cfg.Rig.TireRadius = 0.05
	cfg.Rig.TireWidth = 0.04
	cfg.Rig.MeshSegments = 8
	cfg.Rig.MeshRings = 2
	cfg.Rig.RimMass = 1
	cfg.Rig.InitForwardVel = 0.5

	cfg.Terrain.HalfLength = 0.1
	cfg.Terrain.HalfWidth = 0.1
	cfg.Terrain.HalfHeight = 0.1
	cfg.Terrain.WallThickness = 0.02
	cfg.Terrain.ParticleRadius = 0.02
	cfg.Terrain.ParticleDensity = 2000
	cfg.Terrain.NumLayers = 1
	cfg.Terrain.SettleDuration = 0.01
	cfg.Terrain.SettleStepSize = 1e-4
	return cfg
}

func runBoth(t *testing.T, cfg config.Config) (rigErr, terrainErr error) {
	t.Helper()
	rigEP, terrainEP := transport.Pair()
	rigNode := rig.NewNode(cfg, rigEP, logging.Init("rig"))
	terrainNode := terrain.NewNode(cfg, terrainEP, logging.Init("terrain"))

	rigDone := make(chan error, 1)
	terrainDone := make(chan error, 1)
	go func() {
		rigDone <- driver.New(rigNode, rigEP, cfg.Run, logging.Init("rig")).Run()
	}()
	go func() {
		terrainDone <- driver.New(terrainNode, terrainEP, cfg.Run, logging.Init("terrain")).Run()
	}()
	return <-rigDone, <-terrainDone
}

func TestCoupledRunGranular(t *testing.T) {
	testlog.Start(t)
	cfg := cosimConfig(t)

	rigErr, terrainErr := runBoth(t, cfg)
	if rigErr != nil {
		t.Fatalf("rig: %v", rigErr)
	}
	if terrainErr != nil {
		t.Fatalf("terrain: %v", terrainErr)
	}

	// OutputEvery 5 over 10 steps yields frames 1 and 2 per node.
	for _, name := range []string{"terrain_data_0001.dat", "terrain_data_0002.dat", "rig_results.dat"} {
		if _, err := os.Stat(filepath.Join(cfg.Run.OutputDir, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
}

func TestCoupledRunRigid(t *testing.T) {
	testlog.Start(t)
	cfg := cosimConfig(t)
	cfg.Terrain.Type = config.TerrainRigid

	rigErr, terrainErr := runBoth(t, cfg)
	if rigErr != nil {
		t.Fatalf("rig: %v", rigErr)
	}
	if terrainErr != nil {
		t.Fatalf("terrain: %v", terrainErr)
	}
}

// stub nodes for failure-path tests; they speak just enough protocol to
// keep the counterpart's driver in its loop.

type stubRig struct {
	ep transport.Endpoint
}

func (s *stubRig) Role() string      { return "rig" }
func (s *stubRig) Settle() error     { return nil }
func (s *stubRig) Initialize() error { return nil }
func (s *stubRig) Synchronize(step uint32, t float64) error {
	if err := s.ep.Send(protocol.NewFrame(protocol.KindMeshState, step, 0, nil)); err != nil {
		return err
	}
	_, err := s.ep.Recv(protocol.KindForces, step)
	return err
}
func (s *stubRig) Advance(dt float64) error   { return nil }
func (s *stubRig) OutputData(frame int) error { return nil }

type stubTerrain struct {
	ep     transport.Endpoint
	failAt uint32
}

func (s *stubTerrain) Role() string      { return "terrain" }
func (s *stubTerrain) Settle() error     { return nil }
func (s *stubTerrain) Initialize() error { return nil }
func (s *stubTerrain) Synchronize(step uint32, t float64) error {
	if step == s.failAt {
		return fmt.Errorf("induced failure at step %d", step)
	}
	if _, err := s.ep.Recv(protocol.KindMeshState, step); err != nil {
		return err
	}
	return s.ep.Send(protocol.NewFrame(protocol.KindForces, step, 0, nil))
}
func (s *stubTerrain) Advance(dt float64) error   { return nil }
func (s *stubTerrain) OutputData(frame int) error { return nil }

func TestAbortPropagatesToCounterpart(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()

	run := config.RunConfig{Steps: 10, StepSize: 1e-4, OutputEvery: 100}
	rigDone := make(chan error, 1)
	terrainDone := make(chan error, 1)
	go func() {
		rigDone <- driver.New(&stubRig{ep: rigEP}, rigEP, run, logging.Init("rig")).Run()
	}()
	go func() {
		terrainDone <- driver.New(&stubTerrain{ep: terrainEP, failAt: 3}, terrainEP, run, logging.Init("terrain")).Run()
	}()

	terrainErr := <-terrainDone
	rigErr := <-rigDone

	if terrainErr == nil || errors.Is(terrainErr, protocol.ErrPeerAborted) {
		t.Fatalf("terrain should fail locally, got %v", terrainErr)
	}
	if !errors.Is(rigErr, protocol.ErrPeerAborted) {
		t.Fatalf("rig should observe peer abort, got %v", rigErr)
	}
}

func TestDriverPhaseProgression(t *testing.T) {
	testlog.Start(t)
	rigEP, terrainEP := transport.Pair()

	run := config.RunConfig{Steps: 2, StepSize: 1e-4, OutputEvery: 100}
	d := driver.New(&stubRig{ep: rigEP}, rigEP, run, logging.Init("rig"))
	if d.Phase() != driver.PhaseUninit {
		t.Fatalf("initial phase %s", d.Phase())
	}

	done := make(chan error, 1)
	go func() {
		done <- driver.New(&stubTerrain{ep: terrainEP, failAt: 99}, terrainEP, run, logging.Init("terrain")).Run()
	}()
	if err := d.Run(); err != nil {
		t.Fatalf("rig run: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("terrain run: %v", err)
	}
	if d.Phase() != driver.PhaseDone {
		t.Fatalf("final phase %s, want done", d.Phase())
	}
}
