// rignode runs the rig side of the co-simulation: it dials the terrain
// process, sends the tire material and mesh topology, and then follows
// the lock-step exchange until the configured step count.
package main

import (
	"flag"
	"os"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/driver"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/rig"
	"github.com/Bingouzi3/chrono/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "", "TOML config path (defaults apply when empty)")
	flag.Parse()

	log := logging.Init("rig")

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Error().Err(err).Msg("config")
			os.Exit(1)
		}
	}

	observability.StartDiagnostics(cfg.Diagnostics.Addr, "rig", cfg.Diagnostics.CorsOrigins)

	log.Info().Str("dial", cfg.Transport.Dial).Msg("connecting to terrain")
	ep, err := transport.Dial(cfg.Transport.Dial)
	if err != nil {
		log.Error().Err(err).Msg("transport")
		os.Exit(1)
	}
	defer ep.Close()

	node := rig.NewNode(cfg, ep, log)
	if err := driver.New(node, ep, cfg.Run, log).Run(); err != nil {
		os.Exit(1)
	}
}
