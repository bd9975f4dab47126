package soundwave

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingCredentials is returned when a protected request carries no
	// Session-ID header or no resolved user identity.
	ErrMissingCredentials = errors.New("missing session credentials")
	// ErrInvalidSession is returned when the session is not in the user's live set.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrAccountDeactivated is returned when the account behind a valid session is inactive.
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	// ErrStoreUnavailable wraps every session store failure. It is never
	// converted into a validation result.
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrEngineNotReady   = errors.New("engine not initialized")
	ErrTokenInvalid     = errors.New("invalid token")
)

// Wire codes returned in error response bodies.
const (
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeInvalidSession     = "INVALID_SESSION"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeInvalidProfile     = "INVALID_PROFILE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// Code maps err to its wire code. Unknown errors, including store failures,
// map to [CodeInternal].
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return CodeMissingCredentials
	case errors.Is(err, ErrInvalidSession):
		return CodeInvalidSession
	case errors.Is(err, ErrAccountDeactivated):
		return CodeAccountDeactivated
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrInvalidProfile):
		return CodeInvalidProfile
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrTokenInvalid):
		return CodeInvalidToken
	default:
		return CodeInternal
	}
}

// HTTPStatus maps err to the response status used by the HTTP surface.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case CodeMissingCredentials, CodeInvalidSession, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeAccountDeactivated:
		return http.StatusForbidden
	case CodeSessionNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeInvalidProfile, CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
