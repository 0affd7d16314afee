package edge

import (
	"fmt"
	"log"

	"github.com/BurntSushi/toml"
)

// WorkerConfig is one [[workers]] table entry, per SPEC_FULL.md section 6.1.
type WorkerConfig struct {
	Name   string   `toml:"name"`
	Path   string   `toml:"path"`
	Routes []string `toml:"routes"`
}

// EdgeConfig is the parsed contents of a TOML config file.
type EdgeConfig struct {
	Port    uint16         `toml:"port"`
	Workers []WorkerConfig `toml:"workers"`
}

// LoadConfig reads and parses a TOML config file at path. Unknown keys are
// ignored. A missing or zero port is fatal, matching the teacher's
// startup-failure posture (section 4.5): config errors never produce a
// partially-running server.
func LoadConfig(path string) (*EdgeConfig, error) {
	var cfg EdgeConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("edge: loading config %q: %w", path, err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("edge: config %q: missing or zero port", path)
	}

	workers := cfg.Workers[:0]
	for _, w := range cfg.Workers {
		if w.Path == "" {
			log.Printf("edge: worker %q has empty path, skipping", w.Name)
			continue
		}
		workers = append(workers, w)
	}
	cfg.Workers = workers

	return &cfg, nil
}
