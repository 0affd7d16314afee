package edge

import "github.com/hostedat/edge/internal/core"

// Type aliases re-exporting internal/core types so downstream code can use
// edge.WorkerRequest, edge.EngineConfig, etc. without importing the
// internal package directly.
type WorkerRequest = core.WorkerRequest
type WorkerResponse = core.WorkerResponse
type WorkerResult = core.WorkerResult
type EngineConfig = core.EngineConfig
type JSRuntime = core.JSRuntime
type WorkerRef = core.WorkerRef
