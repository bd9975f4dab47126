package flows

import (
	"context"
)

// CheckFailureKind classifies the outcome of a protected-request session
// check. The order of the constants mirrors the order the checks run in.
type CheckFailureKind int

const (
	CheckFailureNone CheckFailureKind = iota
	CheckFailureMissingCredentials
	CheckFailureInvalidSession
	CheckFailureUnknownAccount
	CheckFailureAccountDeactivated
	CheckFailureSessionBackend
	CheckFailureAccountBackend
)

// AccountState is what the check needs from the system of record.
type AccountState struct {
	Found  bool
	Active bool
}

// CheckDeps captures the dependencies of a protected-request check.
type CheckDeps struct {
	Validate      func(ctx context.Context, userID, sessionID string) (bool, error)
	LookupAccount func(ctx context.Context, userID string) (AccountState, error)
	OnDeactivated func(ctx context.Context, userID string)
}

type CheckResult struct {
	Failure CheckFailureKind
	Err     error
}

// RunSessionCheck runs the protected-request gate:
//
//  1. identity and session ID must both be present;
//  2. the session must be in the user's live set (refreshing the set TTL);
//  3. the account must still exist and be active.
//
// The session check runs first so a stale session never costs an account
// lookup. OnDeactivated fires once, before the deactivation failure returns.
func RunSessionCheck(ctx context.Context, userID, sessionID string, deps CheckDeps) CheckResult {
	if userID == "" || sessionID == "" {
		return CheckResult{Failure: CheckFailureMissingCredentials}
	}

	ok, err := deps.Validate(ctx, userID, sessionID)
	if err != nil {
		return CheckResult{Failure: CheckFailureSessionBackend, Err: err}
	}
	if !ok {
		return CheckResult{Failure: CheckFailureInvalidSession}
	}

	state, err := deps.LookupAccount(ctx, userID)
	if err != nil {
		return CheckResult{Failure: CheckFailureAccountBackend, Err: err}
	}
	if !state.Found {
		return CheckResult{Failure: CheckFailureUnknownAccount}
	}
	if !state.Active {
		if deps.OnDeactivated != nil {
			deps.OnDeactivated(ctx, userID)
		}
		return CheckResult{Failure: CheckFailureAccountDeactivated}
	}

	return CheckResult{}
}
