package edge

// EngineConfig is re-exported in types.go as an alias of core.EngineConfig.
// defaultEngineConfig holds the library's own defaults; the TOML config
// format (section 6.1) carries no [engine] table, so callers that want
// anything other than these defaults build an EngineConfig themselves and
// pass it to NewRuntime/NewEngine directly.
var defaultEngineConfig = EngineConfig{
	MemoryLimitMB:    128,
	ExecutionTimeout: 30_000,
	MaxResponseBytes: 10 * 1024 * 1024,
	MaxScriptSizeKB:  1024,
}

// DefaultEngineConfig returns the library's default engine settings.
func DefaultEngineConfig() EngineConfig {
	return defaultEngineConfig
}
