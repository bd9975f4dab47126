package flows

import "context"

// DeactivationDeps captures forced-logout dependencies.
type DeactivationDeps struct {
	Broadcast     func(ctx context.Context, userID string)
	Revoke        bool
	ClearSessions func(ctx context.Context, userID string) error
}

// RunDeactivation notifies the user's connected clients and, when Revoke is
// set, drops the whole session set. The broadcast goes out first so clients
// hear about the logout even if the clear fails.
func RunDeactivation(ctx context.Context, userID string, deps DeactivationDeps) error {
	deps.Broadcast(ctx, userID)
	if !deps.Revoke || deps.ClearSessions == nil {
		return nil
	}
	return deps.ClearSessions(ctx, userID)
}
