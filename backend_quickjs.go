//go:build !v8

package edge

import (
	"github.com/hostedat/edge/internal/core"
	"github.com/hostedat/edge/internal/quickjs"
)

func newBackend(cfg core.EngineConfig) (core.EngineBackend, error) {
	return quickjs.NewEngine(cfg)
}
