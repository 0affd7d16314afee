//go:build !v8

package quickjs

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/hostedat/edge/internal/core"
	"github.com/hostedat/edge/internal/eventloop"
	"modernc.org/quickjs"
)

// Engine holds the single shared QuickJS VM for the whole process. Every
// loaded worker's module-exports object lives as a uniquely named property
// on globalThis; there is no per-worker isolation and no pooling (see the
// concurrency model: one engine context, workers dispatched serially).
type Engine struct {
	vm     *quickjs.VM
	rt     *qjsRuntime
	loop   *eventloop.EventLoop
	config core.EngineConfig
	nextID int
}

var _ core.EngineBackend = (*Engine)(nil)

// NewEngine creates the shared QuickJS VM, installs the minimal console
// binding, and returns an Engine ready to load workers.
func NewEngine(cfg core.EngineConfig) (*Engine, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}

	rt := &qjsRuntime{vm: vm}
	loop := eventloop.New()

	if err := setupConsole(vm); err != nil {
		vm.Close()
		return nil, fmt.Errorf("setting up console: %w", err)
	}
	if err := setupTimers(rt, loop); err != nil {
		vm.Close()
		return nil, fmt.Errorf("setting up timers: %w", err)
	}

	return &Engine{vm: vm, rt: rt, loop: loop, config: cfg}, nil
}

// setupConsole binds console.log/warn/error to Go's log package. This is the
// full extent of the console surface the edge runtime provides — console
// output is not buffered or returned to callers, only written to the host
// process's log, matching the teacher's plain log.Printf ambient style.
func setupConsole(vm *quickjs.VM) error {
	logFn := func(level, msg string) {
		log.Printf("worker console.%s: %s", level, msg)
	}
	if err := registerGoFunc(vm, "__console_emit", func(level, msg string) (bool, error) {
		logFn(level, msg)
		return true, nil
	}, false); err != nil {
		return err
	}
	return evalDiscard(vm, `
		globalThis.console = {
			log:   function() { __console_emit('log', Array.prototype.join.call(arguments, ' ')); },
			info:  function() { __console_emit('info', Array.prototype.join.call(arguments, ' ')); },
			warn:  function() { __console_emit('warn', Array.prototype.join.call(arguments, ' ')); },
			error: function() { __console_emit('error', Array.prototype.join.call(arguments, ' ')); }
		};
	`)
}

// setupTimers wires setTimeout/setInterval/clearTimeout/clearInterval to the
// shared event loop. Callbacks are stored JS-side; Go only tracks deadlines.
func setupTimers(rt *qjsRuntime, loop *eventloop.EventLoop) error {
	if err := registerGoFunc(rt.vm, "__timer_register", func(delayMs int, interval bool) (int, error) {
		return loop.RegisterTimer(time.Duration(delayMs)*time.Millisecond, interval), nil
	}, false); err != nil {
		return err
	}
	if err := registerGoFunc(rt.vm, "__timer_clear", func(id int) (bool, error) {
		loop.ClearTimer(id)
		return true, nil
	}, false); err != nil {
		return err
	}
	return evalDiscard(rt.vm, `
		globalThis.__timerCallbacks = {};
		globalThis.setTimeout = function(fn, delay) {
			var id = __timer_register(delay || 0, false);
			globalThis.__timerCallbacks[id] = { fn: fn, args: Array.prototype.slice.call(arguments, 2) };
			return id;
		};
		globalThis.setInterval = function(fn, delay) {
			var id = __timer_register(delay || 0, true);
			globalThis.__timerCallbacks[id] = { fn: fn, args: Array.prototype.slice.call(arguments, 2), interval: true };
			return id;
		};
		globalThis.clearTimeout = function(id) { __timer_clear(id); delete globalThis.__timerCallbacks[id]; };
		globalThis.clearInterval = function(id) { __timer_clear(id); delete globalThis.__timerCallbacks[id]; };
	`)
}

// LoadWorker wraps and evaluates a worker's source (already ESM->CJS
// transformed and module-IIFE wrapped by the caller per the 7-step worker
// loader protocol) and stores its normalized fetch handler under a unique
// globalThis slot.
func (e *Engine) LoadWorker(name, wrapped string) (core.WorkerRef, error) {
	slot := fmt.Sprintf("__mod_%d", e.nextID)
	e.nextID++

	assign := fmt.Sprintf("globalThis[%s] = %s;", jsEscape(slot), wrapped)
	v, err := e.vm.EvalValue(assign, quickjs.EvalGlobal)
	if err != nil {
		return "", fmt.Errorf("loading worker %q: %w", name, err)
	}
	v.Free()

	normalize := fmt.Sprintf(`(function() {
		var mod = globalThis[%s];
		var handler = mod;
		if (!handler || typeof handler.fetch !== 'function') {
			if (mod && mod.default && typeof mod.default.fetch === 'function') handler = mod.default;
		}
		if (!handler || typeof handler.fetch !== 'function') {
			throw new Error('worker %s has no fetch handler');
		}
		globalThis[%s] = handler;
	})()`, jsEscape(slot), name, jsEscape(slot))
	if err := evalDiscard(e.vm, normalize); err != nil {
		return "", fmt.Errorf("resolving fetch handler for worker %q: %w", name, err)
	}

	return core.WorkerRef(slot), nil
}

// Execute invokes the referenced worker's fetch handler with req.
func (e *Engine) Execute(ref core.WorkerRef, req *core.WorkerRequest) (result *core.WorkerResult) {
	start := time.Now()
	result = &core.WorkerResult{}

	var timedOut atomic.Bool
	var timeout time.Duration
	var watchdog *time.Timer
	if e.config.ExecutionTimeout > 0 {
		timeout = time.Duration(e.config.ExecutionTimeout) * time.Millisecond
		watchdog = time.AfterFunc(timeout, func() {
			timedOut.Store(true)
			e.vm.Interrupt()
		})
	}

	defer func() {
		if watchdog != nil {
			watchdog.Stop()
		}
		if r := recover(); r != nil {
			if timedOut.Load() {
				result.Error = fmt.Errorf("worker execution timed out (limit: %v)", timeout)
			} else {
				result.Error = fmt.Errorf("worker panic: %v", r)
			}
		}
		result.Duration = time.Since(start)
		_ = evalDiscard(e.vm, `delete globalThis.__req; delete globalThis.__result; delete globalThis.__await_state; delete globalThis.__awaited_result;`)
	}()

	if err := e.buildRequest(req); err != nil {
		result.Error = fmt.Errorf("building JS request: %w", err)
		return result
	}

	callScript := fmt.Sprintf(`
		globalThis.__result = (function() {
			var mod = globalThis[%s];
			return mod.fetch(globalThis.__req);
		})();
	`, jsEscape(string(ref)))
	if err := evalDiscard(e.vm, callScript); err != nil {
		if timedOut.Load() {
			result.Error = fmt.Errorf("worker execution timed out (limit: %v)", timeout)
		} else {
			result.Error = fmt.Errorf("invoking worker fetch: %w", err)
		}
		return result
	}

	e.rt.RunMicrotasks()

	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	} else {
		deadline = start.Add(24 * time.Hour)
	}
	if e.loop.HasPending() {
		e.loop.Drain(e.rt, deadline)
	}

	isPromise, _ := e.rt.EvalBool("globalThis.__result instanceof Promise")
	if isPromise {
		if err := e.awaitResult(deadline); err != nil {
			result.Error = fmt.Errorf("awaiting worker response: %w", err)
			return result
		}
	}

	resp, err := e.extractResponse()
	if err != nil {
		result.Error = fmt.Errorf("converting worker response: %w", err)
		return result
	}

	result.Response = resp
	return result
}

// buildRequest constructs globalThis.__req from a Go WorkerRequest via a
// single JSON.parse call, avoiding any hand-escaping of header values.
func (e *Engine) buildRequest(req *core.WorkerRequest) error {
	payload := struct {
		Method  string            `json:"method"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body,omitempty"`
	}{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    string(req.Body),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	script := fmt.Sprintf("globalThis.__req = JSON.parse(%s);", jsEscape(string(data)))
	return evalDiscard(e.vm, script)
}

// awaitResult bridges globalThis.__result (a Promise) to a synchronous wait,
// draining microtasks and timers until it settles or deadline passes.
func (e *Engine) awaitResult(deadline time.Time) error {
	if err := evalDiscard(e.vm, `
		globalThis.__await_state = 'pending';
		globalThis.__result.then(
			function(v) { globalThis.__awaited_result = v; globalThis.__await_state = 'resolved'; },
			function(err) { globalThis.__awaited_result = err; globalThis.__await_state = 'rejected'; }
		);
	`); err != nil {
		return err
	}

	for {
		e.rt.RunMicrotasks()
		state, err := getGlobalString(e.vm, "__await_state")
		if err != nil {
			return err
		}
		if state == "resolved" {
			return evalDiscard(e.vm, "globalThis.__result = globalThis.__awaited_result;")
		}
		if state == "rejected" {
			msg, _ := getGlobalString(e.vm, "__awaited_result")
			return fmt.Errorf("promise rejected: %s", msg)
		}
		if e.loop.HasPending() {
			e.loop.Drain(e.rt, deadline)
			continue
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for promise to settle")
		}
		time.Sleep(time.Millisecond)
	}
}

// extractResponse normalizes globalThis.__result into a core.WorkerResponse,
// handling both the bare-object and Response-class ("_body"/"_headers")
// shapes described by the worker module contract.
func (e *Engine) extractResponse() (*core.WorkerResponse, error) {
	jsonStr, err := e.rt.EvalString(`
		(function() {
			var r = globalThis.__result;
			var out = { status: 200, contentType: 'text/plain', body: '' };
			if (typeof r === 'string') {
				out.body = r;
				return JSON.stringify(out);
			}
			if (r && typeof r === 'object') {
				if (typeof r.status === 'number') out.status = r.status;
				var body = (r._body !== undefined) ? r._body : r.body;
				if (typeof body === 'string') out.body = body;
				else if (body !== undefined && body !== null) out.body = String(body);
				var headers = (r._headers !== undefined) ? r._headers : r.headers;
				var ct = null;
				if (headers) {
					if (typeof headers.get === 'function') {
						ct = headers.get('content-type') || headers.get('Content-Type');
					} else if (headers._map) {
						ct = headers._map['content-type'] || headers._map['Content-Type'];
					} else {
						ct = headers['content-type'] || headers['Content-Type'];
					}
				}
				if (ct) out.contentType = ct;
			}
			return JSON.stringify(out);
		})()
	`)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Status      int    `json:"status"`
		ContentType string `json:"contentType"`
		Body        string `json:"body"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("parsing response envelope: %w", err)
	}

	maxBytes := e.config.MaxResponseBytes
	body := []byte(parsed.Body)
	if maxBytes > 0 && len(body) > maxBytes {
		body = body[:maxBytes]
	}

	return &core.WorkerResponse{
		StatusCode:  parsed.Status,
		ContentType: parsed.ContentType,
		Body:        body,
	}, nil
}

// Shutdown closes the shared VM, releasing every loaded worker.
func (e *Engine) Shutdown() {
	e.vm.Close()
}

// MaxResponseBytes returns the configured maximum response body size.
func (e *Engine) MaxResponseBytes() int {
	return e.config.MaxResponseBytes
}
