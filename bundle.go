package edge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// relativeImportPattern matches a relative import specifier, e.g.
// `from './util.js'` or `from "../lib/helper"`.
var relativeImportPattern = regexp.MustCompile(`from\s+['"](\.\.?/[^'"]+)['"]`)

// BundleWorkerScript bundles a directory-mode worker's _worker.js entry
// point together with any sibling files it imports, per SPEC_FULL.md
// section 4.3.1. If the entry point has no local (relative) imports, it is
// returned unmodified and esbuild is never invoked.
func BundleWorkerScript(deployPath string) (string, error) {
	entryPoint := filepath.Join(deployPath, "_worker.js")

	source, err := os.ReadFile(entryPoint)
	if err != nil {
		return "", fmt.Errorf("edge: reading _worker.js: %w", err)
	}

	src := string(source)
	if !needsBundling(src, deployPath) {
		return src, nil
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entryPoint},
		AbsWorkingDir: deployPath,
		Bundle:        true,
		Format:        esbuild.FormatESModule,
		Write:         false,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("edge: bundling %s: %s", entryPoint, strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("edge: bundling %s produced no output", entryPoint)
	}

	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling reports whether source contains a relative import whose
// target resolves to a real file next to the entry point. An entry point
// with no such imports (e.g. it only imports bare package specifiers, or
// has no imports at all) skips bundling entirely.
func needsBundling(source, deployPath string) bool {
	matches := relativeImportPattern.FindAllStringSubmatch(source, -1)
	for _, m := range matches {
		if siblingExists(deployPath, m[1]) {
			return true
		}
	}
	return false
}

// siblingExists reports whether a relative import specifier resolves to an
// existing file next to the entry point, trying the specifier as given and
// with a .js suffix appended.
func siblingExists(deployPath, specifier string) bool {
	candidate := filepath.Join(deployPath, specifier)
	if _, err := os.Stat(candidate); err == nil {
		return true
	}
	if _, err := os.Stat(candidate + ".js"); err == nil {
		return true
	}
	return false
}
