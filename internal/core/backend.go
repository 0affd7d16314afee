package core

// WorkerRef names a loaded worker's fetch handler inside the shared engine
// context. It is opaque to callers outside the backend package that issued
// it (in practice, the name of a globalThis slot holding the worker's
// module-exports object).
type WorkerRef string

// EngineBackend is the interface engine implementations (QuickJS, V8) must
// satisfy. The root package's Engine facade delegates to one of these based
// on build tags.
type EngineBackend interface {
	// LoadWorker evaluates source (already ESM->CJS transformed and IIFE
	// wrapped by the caller) against the shared engine context and returns
	// a reference to its fetch handler. name is used only for error
	// messages and script tracing.
	LoadWorker(name, wrapped string) (WorkerRef, error)

	// Execute invokes the referenced worker's fetch handler with req and
	// returns the normalized response.
	Execute(ref WorkerRef, req *WorkerRequest) *WorkerResult

	// Shutdown releases every loaded worker and closes the engine context.
	Shutdown()

	// MaxResponseBytes returns the configured max response body size.
	MaxResponseBytes() int
}
