package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/soundwave/session"
)

type CreateSessionStore interface {
	Put(ctx context.Context, userID, sessionID string, rec session.Record) error
}

// CreateDeps captures session creation dependencies.
type CreateDeps struct {
	Sessions     CreateSessionStore
	NewSessionID func() (string, error)
	Now          func() time.Time
}

// CreateResult carries the issued session ID or the failing step's error.
type CreateResult struct {
	SessionID string
	Record    session.Record
	Err       error
}

// RunCreateSession issues a new session ID and records it with the base role
// and the caller's current profile.
func RunCreateSession(ctx context.Context, userID, profile string, deps CreateDeps) CreateResult {
	sid, err := deps.NewSessionID()
	if err != nil {
		return CreateResult{Err: err}
	}

	rec := session.Record{
		Role:           session.RoleUser,
		CurrentProfile: profile,
		CreatedAt:      deps.Now().UTC(),
	}
	if err := deps.Sessions.Put(ctx, userID, sid, rec); err != nil {
		return CreateResult{Err: err}
	}
	return CreateResult{SessionID: sid, Record: rec}
}

type ValidateSessionStore interface {
	TouchIfPresent(ctx context.Context, userID, sessionID string) (bool, error)
}

// ValidateDeps captures check-and-refresh dependencies.
type ValidateDeps struct {
	Sessions ValidateSessionStore
	Now      func() time.Time
	Observe  func(time.Duration)
}

// RunValidateSession reports whether sessionID is in the user's live set and
// refreshes the set TTL when it is. Empty identifiers are never valid.
// Store errors are returned, never folded into a false result.
func RunValidateSession(ctx context.Context, userID, sessionID string, deps ValidateDeps) (bool, error) {
	if userID == "" || sessionID == "" {
		return false, nil
	}

	start := deps.Now()
	ok, err := deps.Sessions.TouchIfPresent(ctx, userID, sessionID)
	if deps.Observe != nil {
		deps.Observe(deps.Now().Sub(start))
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

type ProfileSessionStore interface {
	Replace(ctx context.Context, userID, sessionID string, rec session.Record) (bool, error)
}

// ProfileFailureKind classifies profile update failures for root-level mapping.
type ProfileFailureKind int

const (
	ProfileFailureNone ProfileFailureKind = iota
	ProfileFailureInvalidInput
	ProfileFailureInvalidProfile
	ProfileFailureNotFound
	ProfileFailureBackend
)

// ProfileDeps captures profile switch dependencies.
type ProfileDeps struct {
	Sessions ProfileSessionStore
	Now      func() time.Time
}

type ProfileResult struct {
	Failure ProfileFailureKind
	Err     error
	Record  session.Record
}

// RunUpdateProfile rewrites the session record with the new profile, the
// base role and a fresh createdAt. It never recreates a removed session.
func RunUpdateProfile(ctx context.Context, userID, sessionID, profile string, deps ProfileDeps) ProfileResult {
	if userID == "" || sessionID == "" {
		return ProfileResult{Failure: ProfileFailureInvalidInput}
	}
	if !session.ValidProfile(profile) {
		return ProfileResult{Failure: ProfileFailureInvalidProfile}
	}

	rec := session.Record{
		Role:           session.RoleUser,
		CurrentProfile: profile,
		CreatedAt:      deps.Now().UTC(),
	}
	ok, err := deps.Sessions.Replace(ctx, userID, sessionID, rec)
	if err != nil {
		return ProfileResult{Failure: ProfileFailureBackend, Err: err}
	}
	if !ok {
		return ProfileResult{Failure: ProfileFailureNotFound}
	}
	return ProfileResult{Record: rec}
}
