package edge

import "github.com/hostedat/edge/internal/core"

// Engine wraps the shared JS engine backend (QuickJS by default, V8 with
// -tags v8). There is exactly one Engine per running server, holding every
// configured worker's module-exports slot in a single context (section 5).
type Engine struct {
	backend core.EngineBackend
}

// NewEngine constructs the engine backend selected at build time (see
// backend_quickjs.go / backend_v8.go) with the given config.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{backend: backend}, nil
}

// LoadWorkers loads every configured worker against this engine's backend
// and returns the loaded workers plus the RouteIndex built from their
// routes.
func (e *Engine) LoadWorkers(configs []WorkerConfig) ([]Worker, *RouteIndex, error) {
	return LoadWorkers(e.backend, configs)
}

// Execute invokes a loaded worker's fetch handler for req.
func (e *Engine) Execute(ref WorkerRef, req *WorkerRequest) *WorkerResult {
	return e.backend.Execute(ref, req)
}

// Shutdown releases the engine context.
func (e *Engine) Shutdown() {
	e.backend.Shutdown()
}

// MaxResponseBytes returns the configured max response body size.
func (e *Engine) MaxResponseBytes() int {
	return e.backend.MaxResponseBytes()
}
