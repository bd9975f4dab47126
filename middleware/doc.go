// Package middleware enforces device sessions on protected HTTP routes.
//
// # Middleware
//
//   - [Authenticate] resolves a bearer access token into the caller's user ID.
//   - [RequireUser] rejects requests without an identity.
//   - [SessionGuard] runs the session gate on routes selected by a
//     [RouteMatcher] and answers MISSING_CREDENTIALS, INVALID_SESSION or
//     ACCOUNT_DEACTIVATED.
//   - [GinAuthenticate] and [GinSessionGuard] are the gin equivalents.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every session and
// account decision is delegated to Engine.CheckSession.
//
// # What this package must NOT do
//
//   - Access Redis or the account store directly.
//   - Send control messages itself; the deactivation broadcast is the
//     Engine's side effect.
//   - Build route patterns per request.
package middleware
