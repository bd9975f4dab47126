// Package jwt issues and verifies the bearer access tokens that identify the
// caller of a Soundwave API. A token resolves a user ID only; device sessions
// are tracked separately and checked through the Session-ID header.
package jwt
