package main

import (
	"flag"
	"log"

	"github.com/hostedat/edge"
)

func main() {
	configPath := flag.String("config", "./edge.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := edge.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("edge: %v", err)
	}

	rt, err := edge.NewRuntime(cfg, edge.DefaultEngineConfig())
	if err != nil {
		log.Fatalf("edge: %v", err)
	}
	defer rt.Shutdown()

	if err := rt.ListenAndServe(); err != nil {
		log.Fatalf("edge: %v", err)
	}
}
