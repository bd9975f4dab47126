package soundwave

import (
	"context"
	"errors"
	"fmt"
)

// TokensEnabled reports whether bearer access tokens are configured.
func (e *Engine) TokensEnabled() bool {
	return e != nil && e.tokens != nil
}

// IssueAccessToken signs a bearer token identifying userID. sessionID is
// embedded for the client's convenience only.
func (e *Engine) IssueAccessToken(userID, sessionID string) (string, error) {
	if !e.TokensEnabled() {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", ErrInvalidInput
	}
	return e.tokens.CreateAccess(userID, sessionID)
}

// ParseAccessToken verifies token and returns the user ID it identifies.
// Every verification failure maps to [ErrTokenInvalid].
func (e *Engine) ParseAccessToken(token string) (string, error) {
	if !e.TokensEnabled() {
		return "", ErrEngineNotReady
	}
	if token == "" {
		return "", ErrTokenInvalid
	}
	claims, err := e.tokens.ParseAccess(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.UID, nil
}

// Login opens a session for an already authenticated, active account and,
// when tokens are configured, issues a matching access token. Credential
// checks happen upstream.
func (e *Engine) Login(ctx context.Context, userID string) (LoginResult, error) {
	if e == nil || e.accounts == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if userID == "" {
		return LoginResult{}, ErrInvalidInput
	}

	user, err := e.accounts.FindUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricAccountLookupError)
		}
		return LoginResult{}, err
	}
	if !user.IsActive {
		return LoginResult{}, ErrAccountDeactivated
	}
	if user.ID == "" {
		user.ID = userID
	}

	sid, err := e.CreateSession(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	res := LoginResult{SessionID: sid}
	if e.TokensEnabled() {
		token, err := e.tokens.CreateAccess(user.ID, sid)
		if err != nil {
			return LoginResult{}, err
		}
		res.AccessToken = token
		res.ExpiresIn = e.tokens.TTL()
	}
	return res, nil
}
