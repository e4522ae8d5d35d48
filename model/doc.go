// Package model defines the provider-agnostic completion abstraction used by
// agents together with routing and resilience middleware.
//
// A Model turns an ordered list of role/content messages into a single
// assistant text. Providers (OpenAI, Anthropic, Gemini, Bedrock) live in
// sub-packages and implement Model so agents stay decoupled from vendor SDKs.
// A Router selects the provider for a model identifier, and WithRateLimit /
// WithCircuitBreaker wrap any Model with shared throttling and failure
// isolation. MockModel offers deterministic completions for tests.
package model
