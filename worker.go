package edge

import (
	"fmt"
	"os"

	"github.com/hostedat/edge/internal/core"
)

// Worker is a loaded worker module: its display name and the handle the
// engine backend uses to invoke its fetch callback.
type Worker struct {
	Name string
	Ref  core.WorkerRef
}

// wrapModuleIIFE wraps transformed or already-CJS code in the module IIFE
// described in SPEC_FULL.md section 4.3 step 3, giving worker authors
// access to exports/require/module/__filename/__dirname the way a real
// CommonJS module would see them.
func wrapModuleIIFE(code string) string {
	return "(function(exports, require, module, __filename, __dirname) {\n" +
		code +
		"\nreturn module.exports;\n})({}, require, {exports:{}}, '', '')"
}

// loadWorkerSource reads a worker's source per SPEC_FULL.md section 4.3.1:
// a directory is bundled via BundleWorkerScript, a plain file is read
// as-is.
func loadWorkerSource(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("edge: reading worker source %q: %w", path, err)
	}
	if info.IsDir() {
		return BundleWorkerScript(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("edge: reading worker source %q: %w", path, err)
	}
	return string(raw), nil
}

// loadWorker implements SPEC_FULL.md section 4.3 steps 1-6 for a single
// WorkerConfig: read the source, transform it if it's an ES module, wrap it
// in the module IIFE, and hand it to the engine backend, which evaluates it
// and resolves the fetch handler.
func loadWorker(backend core.EngineBackend, w WorkerConfig) (Worker, error) {
	source, err := loadWorkerSource(w.Path)
	if err != nil {
		return Worker{}, err
	}

	code := source
	if IsESModule(source) {
		code = Transform(source)
	}

	wrapped := wrapModuleIIFE(code)

	ref, err := backend.LoadWorker(w.Name, wrapped)
	if err != nil {
		return Worker{}, fmt.Errorf("edge: loading worker %q: %w", w.Name, err)
	}

	return Worker{Name: w.Name, Ref: ref}, nil
}

// LoadWorkers loads every configured worker against backend in order and
// builds the RouteIndex that maps incoming paths to a loaded worker's
// index, per section 4.3 step 7.
func LoadWorkers(backend core.EngineBackend, configs []WorkerConfig) ([]Worker, *RouteIndex, error) {
	workers := make([]Worker, 0, len(configs))
	routes := NewRouteIndex()

	for _, w := range configs {
		worker, err := loadWorker(backend, w)
		if err != nil {
			return nil, nil, err
		}

		idx := len(workers)
		workers = append(workers, worker)

		for _, pattern := range w.Routes {
			routes.Add(pattern, idx)
		}
	}

	return workers, routes, nil
}
