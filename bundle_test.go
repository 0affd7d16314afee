package edge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNeedsBundling(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "utils.js"), []byte("export function greet(){}"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{"no imports", "export default { fetch() {} }", false},
		{"relative import to real file", `import { greet } from './utils.js';`, true},
		{"relative import to missing file", `import { foo } from './nonexistent.js';`, false},
		{"bare specifier import", `import crypto from 'crypto';`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsBundling(tt.source, dir); got != tt.want {
				t.Errorf("needsBundling(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestBundleWorkerScript_NoImports(t *testing.T) {
	dir := t.TempDir()
	src := `export default { fetch(req) { return new Response("ok"); } }`
	if err := os.WriteFile(filepath.Join(dir, "_worker.js"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := BundleWorkerScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result != src {
		t.Errorf("expected source unchanged, got %q", result)
	}
}

func TestBundleWorkerScript_WithImports(t *testing.T) {
	dir := t.TempDir()

	utilSrc := `export function greet(name) { return "Hello " + name; }`
	if err := os.WriteFile(filepath.Join(dir, "utils.js"), []byte(utilSrc), 0644); err != nil {
		t.Fatal(err)
	}

	workerSrc := `import { greet } from './utils.js';
export default {
  fetch(req) {
    return new Response(greet("World"));
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "_worker.js"), []byte(workerSrc), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := BundleWorkerScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result == workerSrc {
		t.Error("bundled output should differ from source")
	}
	if len(result) == 0 {
		t.Error("bundled output should not be empty")
	}
}

func TestBundleWorkerScript_MissingEntryPoint(t *testing.T) {
	dir := t.TempDir()
	if _, err := BundleWorkerScript(dir); err == nil {
		t.Fatal("expected error for missing _worker.js")
	}
}

func TestBundleWorkerScript_InvalidImport(t *testing.T) {
	dir := t.TempDir()

	// A relative import that resolves to no sibling file is not bundled at
	// all (needsBundling returns false), so this is expected to succeed
	// with the source returned unchanged rather than fail.
	workerSrc := `import { foo } from './nonexistent.js';
export default { fetch(req) { return new Response(foo()); } }`
	if err := os.WriteFile(filepath.Join(dir, "_worker.js"), []byte(workerSrc), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := BundleWorkerScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result != workerSrc {
		t.Error("expected source returned unchanged when import target does not exist")
	}
}

func TestSiblingExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helper.js"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	if !siblingExists(dir, "./helper.js") {
		t.Error("expected ./helper.js to exist")
	}
	if !siblingExists(dir, "./helper") {
		t.Error("expected ./helper (implicit .js) to resolve")
	}
	if siblingExists(dir, "./missing") {
		t.Error("expected ./missing to not exist")
	}
}
