// Package config loads the co-simulation run configuration from TOML.
// Both processes read the same file; the role decides which sections
// apply.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Role identifies which side of the co-simulation a process runs.
type Role string

const (
	RoleRig     Role = "rig"
	RoleTerrain Role = "terrain"
)

// TerrainType selects the ground model and with it the proxy mode:
// rigid terrain couples through node proxies, granular through face
// proxies.
type TerrainType string

const (
	TerrainRigid    TerrainType = "rigid"
	TerrainGranular TerrainType = "granular"
)

type Config struct {
	Run         RunConfig         `toml:"run"`
	Transport   TransportConfig   `toml:"transport"`
	Rig         RigConfig         `toml:"rig"`
	Terrain     TerrainConfig     `toml:"terrain"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

// RunConfig is shared by both processes; both sides must agree on the
// step count and step size before the run starts.
type RunConfig struct {
	Steps       int     `toml:"steps"`
	StepSize    float64 `toml:"step_size"`
	OutputDir   string  `toml:"output_dir"`
	OutputEvery int     `toml:"output_every"`
}

type TransportConfig struct {
	// Listen is the terrain-side listen address; Dial is the rig-side
	// peer address. Which side does what is fixed, not negotiated.
	Listen string `toml:"listen"`
	Dial   string `toml:"dial"`
}

type RigConfig struct {
	TireRadius     float64 `toml:"tire_radius"`
	TireWidth      float64 `toml:"tire_width"`
	MeshSegments   int     `toml:"mesh_segments"`
	MeshRings      int     `toml:"mesh_rings"`
	RimMass        float64 `toml:"rim_mass"`
	ChassisMass    float64 `toml:"chassis_mass"`
	SetToeMass     float64 `toml:"set_toe_mass"`
	InitForwardVel float64 `toml:"init_forward_vel"`

	// Contact material sent to the terrain node during the handshake.
	Friction     float64 `toml:"friction"`
	Restitution  float64 `toml:"restitution"`
	YoungModulus float64 `toml:"young_modulus"`
	PoissonRatio float64 `toml:"poisson_ratio"`
	Kn           float64 `toml:"kn"`
	Gn           float64 `toml:"gn"`
	Kt           float64 `toml:"kt"`
	Gt           float64 `toml:"gt"`
}

type TerrainConfig struct {
	Type TerrainType `toml:"type"`

	HalfLength    float64 `toml:"half_length"`
	HalfWidth     float64 `toml:"half_width"`
	HalfHeight    float64 `toml:"half_height"`
	WallThickness float64 `toml:"wall_thickness"`

	ParticleRadius  float64 `toml:"particle_radius"`
	ParticleDensity float64 `toml:"particle_density"`
	NumLayers       int     `toml:"num_layers"`
	IDOffset        int     `toml:"id_offset"`

	SettleDuration float64 `toml:"settle_duration"`
	SettleStepSize float64 `toml:"settle_step_size"`
	UseCheckpoint  bool    `toml:"use_checkpoint"`
	CheckpointFile string  `toml:"checkpoint_file"`

	NodeProxyRadius float64 `toml:"node_proxy_radius"`
	NodeProxyMass   float64 `toml:"node_proxy_mass"`
	FaceProxyMass   float64 `toml:"face_proxy_mass"`

	Friction float64 `toml:"friction"`
}

type DiagnosticsConfig struct {
	// Addr enables the health/metrics endpoint when non-empty.
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// Default returns the reference setup: a 10 x 0.5 m container, 6 mm
// granular particles in 10 layers, 1e-4 s steps.
func Default() Config {
	return Config{
		Run: RunConfig{
			Steps:       2000,
			StepSize:    1e-4,
			OutputDir:   "out",
			OutputEvery: 100,
		},
		Transport: TransportConfig{
			Listen: ":9401",
			Dial:   "127.0.0.1:9401",
		},
		Rig: RigConfig{
			TireRadius:     0.46,
			TireWidth:      0.24,
			MeshSegments:   40,
			MeshRings:      4,
			RimMass:        100,
			ChassisMass:    0.1,
			SetToeMass:     0.1,
			InitForwardVel: 10,
			Friction:       0.9,
			Restitution:    0,
			YoungModulus:   2e6,
			PoissonRatio:   0.3,
			Kn:             1.0e7,
			Gn:             1.0e3,
			Kt:             2.86e6,
			Gt:             1.0e3,
		},
		Terrain: TerrainConfig{
			Type:            TerrainGranular,
			HalfLength:      5.0,
			HalfWidth:       0.25,
			HalfHeight:      0.5,
			WallThickness:   0.25,
			ParticleRadius:  0.006,
			ParticleDensity: 2500,
			NumLayers:       10,
			IDOffset:        10000,
			SettleDuration:  0.4,
			SettleStepSize:  1e-4,
			UseCheckpoint:   false,
			CheckpointFile:  "out/checkpoint.dat",
			NodeProxyRadius: 0.01,
			NodeProxyMass:   1,
			FaceProxyMass:   1,
			Friction:        0.9,
		},
	}
}

// Load reads path, fills defaults for omitted fields, and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Run.Steps <= 0 {
		return fmt.Errorf("config: run.steps must be positive, got %d", cfg.Run.Steps)
	}
	if cfg.Run.StepSize <= 0 {
		return fmt.Errorf("config: run.step_size must be positive, got %g", cfg.Run.StepSize)
	}
	if cfg.Run.OutputEvery <= 0 {
		return fmt.Errorf("config: run.output_every must be positive, got %d", cfg.Run.OutputEvery)
	}
	if strings.TrimSpace(cfg.Transport.Listen) == "" {
		return fmt.Errorf("config: transport.listen is required")
	}
	if strings.TrimSpace(cfg.Transport.Dial) == "" {
		return fmt.Errorf("config: transport.dial is required")
	}
	switch cfg.Terrain.Type {
	case TerrainRigid, TerrainGranular:
	default:
		return fmt.Errorf("config: terrain.type must be %q or %q, got %q",
			TerrainRigid, TerrainGranular, cfg.Terrain.Type)
	}
	if cfg.Terrain.ParticleRadius <= 0 {
		return fmt.Errorf("config: terrain.particle_radius must be positive, got %g", cfg.Terrain.ParticleRadius)
	}
	if cfg.Terrain.IDOffset <= 0 {
		return fmt.Errorf("config: terrain.id_offset must be positive, got %d", cfg.Terrain.IDOffset)
	}
	if cfg.Terrain.UseCheckpoint && strings.TrimSpace(cfg.Terrain.CheckpointFile) == "" {
		return fmt.Errorf("config: terrain.checkpoint_file required when use_checkpoint is set")
	}
	if cfg.Rig.TireRadius <= 0 {
		return fmt.Errorf("config: rig.tire_radius must be positive, got %g", cfg.Rig.TireRadius)
	}
	if cfg.Rig.MeshSegments < 3 {
		return fmt.Errorf("config: rig.mesh_segments must be at least 3, got %d", cfg.Rig.MeshSegments)
	}
	if cfg.Rig.MeshRings < 2 {
		return fmt.Errorf("config: rig.mesh_rings must be at least 2, got %d", cfg.Rig.MeshRings)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path.
func WriteDefault(path string) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config write failed (%s): %w", path, err)
	}
	return nil
}
