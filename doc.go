// Package soundwave coordinates a user's device sessions: it records one
// session per logged-in device in Redis, validates them on sensitive
// requests, and pushes control messages ("stop playback", "log out") to the
// user's other connected devices.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// soundwave is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([User], [SessionInfo], [MetricsSnapshot]). Orchestration
// lives in internal/flows, storage in the session package and delivery in the
// realtime package.
//
// # What this package must NOT do
//
//   - Check login credentials. Callers hand in an already authenticated user.
//   - Turn a session store failure into a validation result in either
//     direction.
//   - Wait for, retry, or report control message delivery.
//
// # Performance contract
//
// CheckSession is the hot path: one Redis round trip for the atomic
// check-and-refresh, then one account lookup. An invalid session never
// reaches the account lookup.
package soundwave
