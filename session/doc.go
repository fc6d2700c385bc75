// Package session provides the session model, a compact binary encoding,
// and Redis-backed persistence.
//
// # Binary encoding
//
// Sessions are stored in Redis as a compact binary blob (schema v1). The
// encoder is append-only: future versions may add fields but never
// reinterpret old ones, and the decoder migrates forward on read.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT interpret tokens or decide rotation policy — those
// responsibilities belong to the Engine. It must never import the root
// package (no upward imports).
package session
