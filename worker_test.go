package edge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostedat/edge/internal/core"
)

// fakeBackend implements core.EngineBackend without touching a real JS
// engine, so the worker loader's own logic (read, transform, IIFE-wrap,
// route registration) can be exercised in isolation from backend_quickjs.go
// / backend_v8.go.
type fakeBackend struct {
	loaded map[string]string // name -> the wrapped source it was given
	fail   map[string]error  // name -> error LoadWorker should return
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{loaded: make(map[string]string), fail: make(map[string]error)}
}

func (b *fakeBackend) LoadWorker(name, wrapped string) (core.WorkerRef, error) {
	if err, ok := b.fail[name]; ok {
		return "", err
	}
	b.loaded[name] = wrapped
	return core.WorkerRef(name), nil
}

func (b *fakeBackend) Execute(ref core.WorkerRef, req *core.WorkerRequest) *core.WorkerResult {
	return &core.WorkerResult{Response: &core.WorkerResponse{StatusCode: 200, ContentType: "text/plain"}}
}

func (b *fakeBackend) Shutdown() {}

func (b *fakeBackend) MaxResponseBytes() int { return 0 }

func TestWrapModuleIIFE(t *testing.T) {
	code := "module.exports = { fetch(req) { return new Response('x'); } };"
	wrapped := wrapModuleIIFE(code)

	if want := "(function(exports, require, module, __filename, __dirname) {\n"; wrapped[:len(want)] != want {
		t.Errorf("wrapped code missing IIFE header: %q", wrapped)
	}
	if got := wrapped[len(wrapped)-len("})({}, require, {exports:{}}, '', '')"):]; got != "})({}, require, {exports:{}}, '', '')" {
		t.Errorf("wrapped code missing IIFE invocation tail: %q", wrapped)
	}
	if !strings.Contains(wrapped, code) {
		t.Error("wrapped code does not contain original code")
	}
	if !strings.Contains(wrapped, "return module.exports;") {
		t.Error("wrapped code does not return module.exports")
	}
}

func TestLoadWorker_CJSPassesThroughUntransformed(t *testing.T) {
	path := writeWorkerFile(t, `module.exports = { fetch(req) { return new Response("x"); } };`)
	backend := newFakeBackend()

	w, err := loadWorker(backend, WorkerConfig{Name: "cjs", Path: path})
	if err != nil {
		t.Fatalf("loadWorker: %v", err)
	}
	if w.Name != "cjs" {
		t.Errorf("Name = %q, want cjs", w.Name)
	}
	if !strings.Contains(backend.loaded["cjs"], `module.exports = { fetch(req)`) {
		t.Error("expected CJS source wrapped but otherwise untransformed")
	}
}

func TestLoadWorker_ESMIsTransformedBeforeLoading(t *testing.T) {
	path := writeWorkerFile(t, `export default { fetch(req) { return new Response("x"); } };`)
	backend := newFakeBackend()

	if _, err := loadWorker(backend, WorkerConfig{Name: "esm", Path: path}); err != nil {
		t.Fatalf("loadWorker: %v", err)
	}

	wrapped := backend.loaded["esm"]
	if strings.Contains(wrapped, "export default") {
		t.Error("expected export default to be rewritten before loading")
	}
	if !strings.Contains(wrapped, "module.exports =") {
		t.Error("expected module.exports = after transform")
	}
}

func TestLoadWorker_MissingFileFails(t *testing.T) {
	backend := newFakeBackend()
	_, err := loadWorker(backend, WorkerConfig{Name: "missing", Path: "/no/such/file.js"})
	if err == nil {
		t.Fatal("expected error for missing worker source file")
	}
}

func TestLoadWorker_BackendLoadErrorPropagates(t *testing.T) {
	path := writeWorkerFile(t, `module.exports = { fetch() {} };`)
	backend := newFakeBackend()
	backend.fail["broken"] = fmt.Errorf("no fetch handler")

	_, err := loadWorker(backend, WorkerConfig{Name: "broken", Path: path})
	if err == nil {
		t.Fatal("expected backend error to propagate")
	}
}

func TestLoadWorkers_BuildsRouteIndexInOrder(t *testing.T) {
	apiPath := writeWorkerFile(t, `module.exports = { fetch() {} };`)
	sitePath := filepath.Join(filepath.Dir(apiPath), "site.js")
	if err := os.WriteFile(sitePath, []byte(`module.exports = { fetch() {} };`), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := newFakeBackend()
	configs := []WorkerConfig{
		{Name: "api", Path: apiPath, Routes: []string{"/api/*"}},
		{Name: "site", Path: sitePath, Routes: []string{"*"}},
	}

	workers, routes, err := LoadWorkers(backend, configs)
	if err != nil {
		t.Fatalf("LoadWorkers: %v", err)
	}
	if len(workers) != 2 {
		t.Fatalf("len(workers) = %d, want 2", len(workers))
	}
	if workers[0].Name != "api" || workers[1].Name != "site" {
		t.Errorf("unexpected worker order: %+v", workers)
	}

	if idx := routes.Match("/api/users"); idx != 0 {
		t.Errorf("Match(/api/users) = %d, want 0 (api)", idx)
	}
	if idx := routes.Match("/anything-else"); idx != 1 {
		t.Errorf("Match(/anything-else) = %d, want 1 (site, wildcard fallback)", idx)
	}
}
