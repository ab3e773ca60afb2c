// configgen writes or validates the co-simulation config file.
package main

import (
	"flag"
	"log"

	"github.com/Bingouzi3/chrono/internal/config"
)

func main() {
	output := flag.String("output", "cosim.toml", "output path for the config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "cosim.toml", "config path for validation")
	flag.Parse()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s", *input)
		return
	}

	if err := config.WriteDefault(*output); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}
