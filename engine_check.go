package soundwave

import (
	"context"
	"errors"

	"github.com/MrEthical07/soundwave/internal/flows"
)

// CheckSession runs the per-request gate for a protected route:
//
//   - missing identity or session ID: [ErrMissingCredentials]
//   - session not in the live set: [ErrInvalidSession]
//   - account gone: [ErrInvalidSession]
//   - account inactive: [ErrAccountDeactivated], after a forced-logout broadcast
//
// Store and account lookup failures come back wrapped in
// [ErrStoreUnavailable] or as the provider's error; they are never turned
// into a pass.
func (e *Engine) CheckSession(ctx context.Context, userID, sessionID string) error {
	if e == nil || e.sessions == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	res := flows.RunSessionCheck(ctx, userID, sessionID, e.flows.Check)
	switch res.Failure {
	case flows.CheckFailureNone:
		e.metricInc(MetricSessionValidated)
		return nil
	case flows.CheckFailureMissingCredentials:
		e.metricInc(MetricMissingCredentials)
		return ErrMissingCredentials
	case flows.CheckFailureInvalidSession:
		e.metricInc(MetricSessionRejected)
		return ErrInvalidSession
	case flows.CheckFailureUnknownAccount:
		e.metricInc(MetricSessionRejected)
		e.log.Warn("session.check.unknown_account", "user_id", userID, "session_id", sessionID)
		return ErrInvalidSession
	case flows.CheckFailureAccountDeactivated:
		return ErrAccountDeactivated
	case flows.CheckFailureSessionBackend:
		e.metricInc(MetricStoreError)
		e.log.Error("session.check.store_fail", "user_id", userID, "err", res.Err)
		return storeError(res.Err)
	default:
		e.metricInc(MetricAccountLookupError)
		e.log.Error("session.check.account_fail", "user_id", userID, "err", res.Err)
		return res.Err
	}
}

func (e *Engine) lookupAccount(ctx context.Context, userID string) (flows.AccountState, error) {
	u, err := e.accounts.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return flows.AccountState{}, nil
		}
		return flows.AccountState{}, err
	}
	return flows.AccountState{Found: true, Active: u.IsActive}, nil
}

func (e *Engine) onDeactivated(ctx context.Context, userID string) {
	// Errors are logged inside; the caller still answers ACCOUNT_DEACTIVATED.
	_ = e.HandleUserDeactivation(ctx, userID)
}
