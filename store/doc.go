// Package store keeps the results of asynchronous workflow runs, keyed by
// the run's trace id, so clients can poll for them.
//
// InMemoryStore suits tests and single-process servers; RedisStore shares
// results between server replicas. Both expire entries after a TTL.
package store
