// Package server exposes workflow runs over HTTP.
//
//	POST /run/workflow              start a run, returns {"trace_id": ...}
//	POST /run/workflow/sync         run inline and return the result
//	GET  /workflow/result/{trace_id} poll a run
//	POST /tools/{name}              execute a tool out of band
//	GET  /healthz, GET /metrics
//
// Requests other than /healthz and /metrics require the bearer token when
// one is configured.
package server
