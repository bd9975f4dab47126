package soundwave

import (
	"context"

	"github.com/MrEthical07/soundwave/internal/flows"
)

// HandleAudioPlay tells every other device of the user to stop playback.
// It never reads or writes the session store; receivers ignore the message
// when currentSessionID is their own. Delivery is best effort, so the only
// errors are argument errors.
func (e *Engine) HandleAudioPlay(ctx context.Context, userID, currentSessionID string) error {
	if e == nil || e.broadcaster == nil {
		return ErrEngineNotReady
	}
	if userID == "" || currentSessionID == "" {
		return ErrInvalidInput
	}

	flows.RunAudioPlay(ctx, userID, currentSessionID, e.flows.Audio)

	e.metricInc(MetricAudioPlay)
	e.log.Debug("session.audio_play", "user_id", userID, "session_id", currentSessionID)
	return nil
}

// HandleUserDeactivation broadcasts a forced logout to the user's channel.
// The session set is kept unless Config.Session.RevokeOnDeactivation is on,
// so the live account check keeps rejecting the user's requests until the
// set expires. The returned error only reports a failed revoke.
func (e *Engine) HandleUserDeactivation(ctx context.Context, userID string) error {
	if e == nil || e.broadcaster == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrInvalidInput
	}

	e.metricInc(MetricDeactivationDetected)
	err := flows.RunDeactivation(ctx, userID, e.flows.Deactivation)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.deactivation.revoke_fail", "user_id", userID, "err", err)
		e.emitAudit(ctx, auditEventDeactivation, false, userID, "", err, nil)
		return storeError(err)
	}

	revoked := e.config.Session.RevokeOnDeactivation
	if revoked {
		e.metricInc(MetricSessionsRevoked)
	}
	e.log.Info("session.deactivation", "user_id", userID, "revoked", revoked)
	e.emitAudit(ctx, auditEventDeactivation, true, userID, "", nil, func() map[string]string {
		if revoked {
			return map[string]string{"revoked": "true"}
		}
		return nil
	})
	return nil
}

func (e *Engine) broadcastForceLogout(kind, reason string) func(ctx context.Context, userID string) {
	return func(ctx context.Context, userID string) {
		e.broadcaster.Broadcast(ctx, userID, EventForceLogout, ForceLogoutPayload{
			Type:   kind,
			Reason: reason,
		})
	}
}
