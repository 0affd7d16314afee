package edge

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadConfigBasic(t *testing.T) {
	path := writeTempConfig(t, `
port = 8787

[[workers]]
name = "api"
path = "./workers/api.js"
routes = ["/api/*"]

[[workers]]
name = "site"
path = "./workers/site.js"
routes = ["*"]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Port)
	}
	if len(cfg.Workers) != 2 {
		t.Fatalf("len(Workers) = %d, want 2", len(cfg.Workers))
	}
	if cfg.Workers[0].Name != "api" || cfg.Workers[0].Routes[0] != "/api/*" {
		t.Errorf("unexpected first worker: %+v", cfg.Workers[0])
	}
}

func TestLoadConfigMissingPortIsFatal(t *testing.T) {
	path := writeTempConfig(t, `
[[workers]]
name = "api"
path = "./workers/api.js"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for missing port")
	}
}

func TestLoadConfigSkipsEmptyPathWorker(t *testing.T) {
	path := writeTempConfig(t, `
port = 8787

[[workers]]
name = "broken"
path = ""
routes = ["*"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.Workers) != 0 {
		t.Errorf("expected empty-path worker to be skipped, got %+v", cfg.Workers)
	}
}

func TestLoadConfigUnknownKeysIgnored(t *testing.T) {
	path := writeTempConfig(t, `
port = 8787
mystery = "ignored"

[[workers]]
name = "api"
path = "./workers/api.js"
routes = ["/api/*"]
unknown_worker_key = 1
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
