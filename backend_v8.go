//go:build v8

package edge

import (
	"github.com/hostedat/edge/internal/core"
	"github.com/hostedat/edge/internal/v8engine"
)

func newBackend(cfg core.EngineConfig) (core.EngineBackend, error) {
	return v8engine.NewEngine(cfg)
}
