package terrain

import (
	"math"
	"time"

	"github.com/Bingouzi3/chrono/internal/config"
)

// Settle brings the granular material to rest before the coupled run
// starts, either by time-stepping the bed under gravity or by restoring
// a previously written checkpoint. Rigid terrain has nothing to settle.
// On return the settled surface height is cached for the handshake.
func (n *Node) Settle() error {
	tc := n.cfg.Terrain
	if tc.Type != config.TerrainGranular {
		n.initHeight = 0
		return nil
	}

	if tc.UseCheckpoint {
		if err := n.ReadCheckpoint(tc.CheckpointFile); err != nil {
			return err
		}
		n.log.Info().
			Str("file", tc.CheckpointFile).
			Int("particles", n.numParticles).
			Msg("restored checkpoint")
	} else {
		start := time.Now()
		steps := int(math.Ceil(tc.SettleDuration / tc.SettleStepSize))
		for i := 0; i < steps; i++ {
			n.sys.Step(tc.SettleStepSize)
		}
		n.log.Info().
			Int("steps", steps).
			Dur("elapsed", time.Since(start)).
			Msg("settled granular material")
	}

	n.initHeight = n.surfaceHeight()
	n.log.Info().Float64("height", n.initHeight).Msg("settled terrain height")
	return nil
}

// surfaceHeight is the highest particle center plus the particle
// radius. An empty bed settles to the container floor at z = 0.
func (n *Node) surfaceHeight() float64 {
	top := math.Inf(-1)
	for _, b := range n.particles() {
		if z := b.Pos().Z; z > top {
			top = z
		}
	}
	if math.IsInf(top, -1) {
		return 0
	}
	return top + n.cfg.Terrain.ParticleRadius
}
