// Package internal contains helpers private to soundwave, currently identifier
// generation for sessions, audit events and control messages.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for the Engine's session operations
//   - logging: slog setup shared by the server binary
//   - rate: Redis fixed-window request limiter used by the HTTP surface
//   - server: configuration and HTTP runtime of soundwave-sessiond
//
// # What this package must NOT do
//
//   - Export types that appear in the public soundwave API.
//   - Be imported by any package outside the soundwave module.
package internal
