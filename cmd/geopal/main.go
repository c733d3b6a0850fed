package main

import (
	"log"

	"github.com/m3rciful/geopal/core/cmd"
	"github.com/m3rciful/geopal/internal/app"
)

func main() {
	if err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "GEOPAL_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.Load,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatalf("geopal: %v", err)
	}
}
