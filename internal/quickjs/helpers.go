//go:build !v8

package quickjs

import (
	"fmt"
	"strconv"

	"modernc.org/quickjs"
)

// evalDiscard evaluates JavaScript and discards the result (frees the Value).
// Use for fire-and-forget JS execution where the return value is not needed.
func evalDiscard(vm *quickjs.VM, js string) error {
	v, err := vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// getGlobalString reads a global property as a string.
func getGlobalString(vm *quickjs.VM, name string) (string, error) {
	r, err := vm.Eval(fmt.Sprintf("String(globalThis[%q])", name), quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	return fmt.Sprint(r), nil
}

// jsEscape escapes a string for safe embedding in JavaScript source code.
// Uses %q formatting which produces a Go-quoted string that is also valid JS.
func jsEscape(s string) string {
	return strconv.Quote(s)
}

// registerGoFunc registers a Go function that returns (T, error) and wraps it
// in JS so that:
//   - On success (error == nil), returns T directly (not [T, null])
//   - On error (error != nil), throws a TypeError with the error message
func registerGoFunc(vm *quickjs.VM, name string, f any, wantThis bool) error {
	rawName := "__raw_" + name
	if err := vm.RegisterFunc(rawName, f, wantThis); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return evalDiscard(vm, wrapJS)
}
