package flows

import (
	"context"
)

type LogoutSessionStore interface {
	Remove(ctx context.Context, userID, sessionID string) error
	Clear(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Sessions LogoutSessionStore
	// Notify is called after a logout-all so other devices drop their state.
	Notify func(ctx context.Context, userID string)
}

// RunLogout removes one session. Removing an absent session succeeds.
func RunLogout(ctx context.Context, userID, sessionID string, deps LogoutDeps) error {
	return deps.Sessions.Remove(ctx, userID, sessionID)
}

// RunLogoutAll drops every session of the user and then notifies them.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	if err := deps.Sessions.Clear(ctx, userID); err != nil {
		return err
	}
	if deps.Notify != nil {
		deps.Notify(ctx, userID)
	}
	return nil
}
