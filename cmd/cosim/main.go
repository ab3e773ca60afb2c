// cosim runs both co-simulation nodes in one process over an in-memory
// channel pair. Useful for quick runs and debugging without managing
// two processes; the exchange semantics are identical to the TCP path.
package main

import (
	"flag"
	"os"
	"sync"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/driver"
	"github.com/Bingouzi3/chrono/internal/logging"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/rig"
	"github.com/Bingouzi3/chrono/internal/terrain"
	"github.com/Bingouzi3/chrono/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "", "TOML config path (defaults apply when empty)")
	flag.Parse()

	rigLog := logging.Init("rig")
	terrainLog := logging.Init("terrain")

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			rigLog.Error().Err(err).Msg("config")
			os.Exit(1)
		}
	}

	observability.StartDiagnostics(cfg.Diagnostics.Addr, "cosim", cfg.Diagnostics.CorsOrigins)

	rigEP, terrainEP := transport.Pair()

	rigNode := rig.NewNode(cfg, rigEP, rigLog)
	terrainNode := terrain.NewNode(cfg, terrainEP, terrainLog)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- driver.New(rigNode, rigEP, cfg.Run, rigLog).Run()
	}()
	go func() {
		defer wg.Done()
		errs <- driver.New(terrainNode, terrainEP, cfg.Run, terrainLog).Run()
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			os.Exit(1)
		}
	}
}
