// terrainnode runs the terrain side of the co-simulation. It listens
// for the rig process, settles (or restores) the granular material, and
// then follows the lock-step exchange until the configured step count.
package main

import (
	"flag"
	"os"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/driver"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/terrain"
	"github.com/Bingouzi3/chrono/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "", "TOML config path (defaults apply when empty)")
	writeCheckpoint := flag.Bool("write-checkpoint", false, "write a settling checkpoint when the run completes")
	flag.Parse()

	log := logging.Init("terrain")

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Error().Err(err).Msg("config")
			os.Exit(1)
		}
	}

	observability.StartDiagnostics(cfg.Diagnostics.Addr, "terrain", cfg.Diagnostics.CorsOrigins)

	log.Info().Str("listen", cfg.Transport.Listen).Msg("waiting for rig")
	ep, err := transport.Listen(cfg.Transport.Listen)
	if err != nil {
		log.Error().Err(err).Msg("transport")
		os.Exit(1)
	}
	defer ep.Close()

	node := terrain.NewNode(cfg, ep, log)
	if err := driver.New(node, ep, cfg.Run, log).Run(); err != nil {
		os.Exit(1)
	}

	if *writeCheckpoint {
		if err := node.WriteCheckpoint(cfg.Terrain.CheckpointFile); err != nil {
			log.Error().Err(err).Msg("checkpoint")
			os.Exit(1)
		}
	}
}
