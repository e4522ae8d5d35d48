// Package logging provides the minimal logging interface used throughout
// agentfactory together with adapters for slog and zap.
//
// Components accept a Logger through their options and default to NoOpLogger
// when none is configured:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	registry := tool.NewRegistry(func(o *tool.Options) { o.Logger = logger })
//
// The CLI builds a production zap logger and wraps it with NewZapAdapter so
// library code never depends on a concrete logging backend.
package logging
