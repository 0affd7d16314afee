package edge

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// responsePolyfill is a minimal framework-style Response class a worker can
// define for itself; the runtime has no built-in Response global (section
// 4.4 only specifies the shape it accepts, not who constructs it).
const responsePolyfill = `
class Response {
  constructor(body, init) {
    init = init || {};
    this._body = body;
    this.status = init.status || 200;
    this._headers = init.headers || {};
  }
}
`

func writeWorkerFile(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.js")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("writing worker file: %v", err)
	}
	return path
}

func newSingleWorkerRuntime(t *testing.T, source, pattern string) *Runtime {
	t.Helper()
	path := writeWorkerFile(t, source)
	edgeCfg := &EdgeConfig{
		Port: 0,
		Workers: []WorkerConfig{
			{Name: "test", Path: path, Routes: []string{pattern}},
		},
	}
	rt, err := NewRuntime(edgeCfg, defaultEngineConfig)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(rt.Shutdown)
	return rt
}

func sendRequest(rt *Runtime, raw string) string {
	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		rt.handleConnection(server)
		close(done)
	}()

	client.SetDeadline(time.Now().Add(5 * time.Second))
	client.Write([]byte(raw))

	buf := make([]byte, 16*1024)
	n, _ := client.Read(buf)
	client.Close()
	<-done
	return string(buf[:n])
}

func TestDispatchJSONResponse(t *testing.T) {
	src := responsePolyfill + `
module.exports = {
  fetch(req) {
    return new Response(JSON.stringify({ok:true}), { status: 200, headers: {"content-type":"application/json"} });
  }
};
`
	rt := newSingleWorkerRuntime(t, src, "/api/*")
	out := sendRequest(rt, "GET /api/x HTTP/1.1\r\nHost: h\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.Contains(out, "Content-Type: application/json\r\n") {
		t.Errorf("missing content-type header, got: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 11\r\n") {
		t.Errorf("expected Content-Length: 11, got: %q", out)
	}
	if !strings.HasSuffix(out, `{"ok":true}`) {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchBareString(t *testing.T) {
	src := `module.exports = { fetch(req) { return "hi"; } };`
	rt := newSingleWorkerRuntime(t, src, "/api/*")
	out := sendRequest(rt, "GET /api/x HTTP/1.1\r\nHost: h\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Errorf("missing content-type header, got: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 2\r\n") {
		t.Errorf("expected Content-Length: 2, got: %q", out)
	}
	if !strings.HasSuffix(out, "hi") {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchBarePlainObject(t *testing.T) {
	src := `module.exports = { fetch(req) { return {status: 404, body: "gone"}; } };`
	rt := newSingleWorkerRuntime(t, src, "/api/*")
	out := sendRequest(rt, "GET /api/x HTTP/1.1\r\nHost: h\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 4\r\n") {
		t.Errorf("expected Content-Length: 4, got: %q", out)
	}
	if !strings.HasSuffix(out, "gone") {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchWorkerThrows(t *testing.T) {
	src := `module.exports = { fetch(req) { throw new Error("boom"); } };`
	rt := newSingleWorkerRuntime(t, src, "/api/*")
	out := sendRequest(rt, "GET /api/x HTTP/1.1\r\nHost: h\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.HasSuffix(out, "Internal Server Error") {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchNoWorkerConfigured(t *testing.T) {
	edgeCfg := &EdgeConfig{Port: 0}
	rt, err := NewRuntime(edgeCfg, defaultEngineConfig)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Shutdown()

	out := sendRequest(rt, "GET /anything HTTP/1.1\r\nHost: h\r\n\r\n")
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.HasSuffix(out, "Not Found") {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchMalformedRequest(t *testing.T) {
	src := `module.exports = { fetch(req) { return "hi"; } };`
	rt := newSingleWorkerRuntime(t, src, "/api/*")
	out := sendRequest(rt, "GET /api/x HTTP/1.1\r\nHost: h")

	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("unexpected status line, got: %q", out)
	}
	if !strings.HasSuffix(out, "Bad Request") {
		t.Errorf("unexpected body, got: %q", out)
	}
}

func TestDispatchESModuleEquivalentToCJS(t *testing.T) {
	esmSrc := `export default { fetch(req) { return "x"; } };`
	cjsSrc := `module.exports = { fetch(req) { return "x"; } };`

	esmRt := newSingleWorkerRuntime(t, esmSrc, "*")
	cjsRt := newSingleWorkerRuntime(t, cjsSrc, "*")

	esmOut := sendRequest(esmRt, "GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	cjsOut := sendRequest(cjsRt, "GET / HTTP/1.1\r\nHost: h\r\n\r\n")

	if esmOut != cjsOut {
		t.Errorf("ESM and CJS workers produced different output:\nesm: %q\ncjs: %q", esmOut, cjsOut)
	}
}
