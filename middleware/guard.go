package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/soundwave"
)

// SessionHeader carries the device session identifier.
const SessionHeader = "Session-ID"

// SessionChecker runs the protected-route session gate. *soundwave.Engine
// implements it.
type SessionChecker interface {
	CheckSession(ctx context.Context, userID, sessionID string) error
}

// TokenParser resolves a bearer token to a user ID. *soundwave.Engine
// implements it.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// Authenticate resolves "Authorization: Bearer <token>" into the request's
// user identity. Without the header the request continues unauthenticated;
// a present but invalid token is rejected with 401 INVALID_TOKEN.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				WriteEngineError(w, soundwave.ErrTokenInvalid)
				return
			}
			userID, err := tokens.ParseAccessToken(token)
			if err != nil || userID == "" {
				WriteEngineError(w, soundwave.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects requests without a resolved identity with 401
// UNAUTHORIZED.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GuardOption customizes [SessionGuard].
type GuardOption func(*guardOptions)

type guardOptions struct {
	log *slog.Logger
}

// WithLogger sets the logger for infrastructure failures.
func WithLogger(log *slog.Logger) GuardOption {
	return func(o *guardOptions) { o.log = log }
}

// SessionGuard enforces device sessions on routes matched by routes:
//
//  1. route not protected: pass without touching the store
//  2. no Session-ID header or no identity: 401 MISSING_CREDENTIALS
//  3. session not live: 401 INVALID_SESSION
//  4. account inactive: forced-logout broadcast, then 403 ACCOUNT_DEACTIVATED
//  5. otherwise pass, with the session ID in the request context
//
// Store or account lookup failures answer 500 INTERNAL_ERROR. A nil routes
// protects every request.
func SessionGuard(checker SessionChecker, routes *RouteMatcher, opts ...GuardOption) func(http.Handler) http.Handler {
	o := guardOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if routes != nil && !routes.Match(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, err := checkRequest(r, checker)
			if err != nil {
				if soundwave.Code(err) == soundwave.CodeInternal {
					o.log.Error("http.session_guard.fail", "method", r.Method, "path", r.URL.Path, "err", err)
				}
				WriteEngineError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSessionID(r.Context(), sessionID)))
		})
	}
}

func checkRequest(r *http.Request, checker SessionChecker) (string, error) {
	if checker == nil {
		return "", soundwave.ErrEngineNotReady
	}
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	userID, _ := UserIDFromContext(r.Context())
	if err := checker.CheckSession(r.Context(), userID, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
