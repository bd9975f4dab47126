// Package session provides Redis-backed storage of per-user device sessions.
//
// # Layout
//
// Each user owns a single hash, "user_sessions:<userID>", whose fields are
// session IDs and whose values are JSON encoded [Record] values. One TTL
// covers the whole hash; it is reset on every write and on every successful
// validation, so an active device keeps all of its sibling sessions alive.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record] model. It
// does NOT decide whether a request is authorized, look up accounts, or emit
// real-time notifications. Those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import soundwave, middleware, or realtime (no upward imports).
//   - Cache records in process memory.
//   - Store credentials in [Record] fields.
package session
