package soundwave

import (
	"context"
	"errors"
	"sort"

	"github.com/MrEthical07/soundwave/internal/flows"
	"github.com/MrEthical07/soundwave/session"
)

// CreateSession registers a new device session for an authenticated user
// and returns its identifier. The record carries the base role and the
// user's current profile; a missing or unknown profile falls back to
// Config.Session.DefaultProfile. Only store failures are reported.
func (e *Engine) CreateSession(ctx context.Context, user User) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}
	if user.ID == "" {
		return "", ErrInvalidInput
	}

	profile := user.CurrentProfile
	if !session.ValidProfile(profile) {
		if profile != "" {
			e.log.Warn("session.create.profile_fallback", "user_id", user.ID, "profile", profile)
		}
		profile = e.config.Session.DefaultProfile
	}

	res := flows.RunCreateSession(ctx, user.ID, profile, e.flows.Create)
	if res.Err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.create.fail", "user_id", user.ID, "err", res.Err)
		e.emitAudit(ctx, auditEventSessionCreated, false, user.ID, "", res.Err, nil)
		return "", storeError(res.Err)
	}

	e.metricInc(MetricSessionCreated)
	e.log.Info("session.create", "user_id", user.ID, "session_id", res.SessionID, "profile", profile)
	e.emitAudit(ctx, auditEventSessionCreated, true, user.ID, res.SessionID, nil, func() map[string]string {
		return map[string]string{"profile": profile}
	})
	return res.SessionID, nil
}

// RemoveSession logs one device out. Removing an unknown session succeeds.
func (e *Engine) RemoveSession(ctx context.Context, userID, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if userID == "" || sessionID == "" {
		return ErrInvalidInput
	}

	if err := flows.RunLogout(ctx, userID, sessionID, e.flows.Logout); err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.remove.fail", "user_id", userID, "session_id", sessionID, "err", err)
		e.emitAudit(ctx, auditEventSessionRemoved, false, userID, sessionID, err, nil)
		return storeError(err)
	}

	e.metricInc(MetricSessionRemoved)
	e.log.Info("session.remove", "user_id", userID, "session_id", sessionID)
	e.emitAudit(ctx, auditEventSessionRemoved, true, userID, sessionID, nil, nil)
	return nil
}

// ValidateSession reports whether sessionID is in userID's live set and, if
// so, refreshes the whole set's TTL in the same atomic step. Unknown
// sessions, unknown users and expired sets are false with a nil error. A
// store failure is returned as an error and never reported as valid.
func (e *Engine) ValidateSession(ctx context.Context, userID, sessionID string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}

	ok, err := flows.RunValidateSession(ctx, userID, sessionID, e.flows.Validate)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.validate.fail", "user_id", userID, "err", err)
		return false, storeError(err)
	}
	if !ok {
		e.metricInc(MetricSessionRejected)
		return false, nil
	}
	e.metricInc(MetricSessionValidated)
	return true, nil
}

// UpdateSessionProfile switches the session's operating mode. The record is
// rewritten with the base role, the new profile and a fresh createdAt, and
// the set TTL is refreshed. A session that is no longer in the set is not
// recreated.
func (e *Engine) UpdateSessionProfile(ctx context.Context, userID, sessionID, profile string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	res := flows.RunUpdateProfile(ctx, userID, sessionID, profile, e.flows.Profile)
	switch res.Failure {
	case flows.ProfileFailureNone:
	case flows.ProfileFailureInvalidInput:
		return ErrInvalidInput
	case flows.ProfileFailureInvalidProfile:
		return ErrInvalidProfile
	case flows.ProfileFailureNotFound:
		e.emitAudit(ctx, auditEventProfileUpdated, false, userID, sessionID, ErrSessionNotFound, nil)
		return ErrSessionNotFound
	default:
		e.metricInc(MetricStoreError)
		e.log.Error("session.profile.fail", "user_id", userID, "session_id", sessionID, "err", res.Err)
		return storeError(res.Err)
	}

	e.metricInc(MetricProfileUpdated)
	e.log.Info("session.profile", "user_id", userID, "session_id", sessionID, "profile", profile)
	e.emitAudit(ctx, auditEventProfileUpdated, true, userID, sessionID, nil, func() map[string]string {
		return map[string]string{"profile": profile}
	})
	return nil
}

// GetSession returns one session of the user.
func (e *Engine) GetSession(ctx context.Context, userID, sessionID string) (SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return SessionInfo{}, ErrEngineNotReady
	}
	if userID == "" || sessionID == "" {
		return SessionInfo{}, ErrInvalidInput
	}

	rec, err := e.sessions.Get(ctx, userID, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrRecordCorrupt):
		return SessionInfo{}, ErrSessionNotFound
	default:
		e.metricInc(MetricStoreError)
		return SessionInfo{}, storeError(err)
	}
	return sessionInfo(sessionID, *rec), nil
}

// ListSessions returns the user's live sessions, newest first. Corrupt
// entries are skipped and logged.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrInvalidInput
	}

	records, corrupt, err := e.sessions.Records(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.list.fail", "user_id", userID, "err", err)
		return nil, storeError(err)
	}
	if corrupt > 0 {
		e.log.Warn("session.list.corrupt", "user_id", userID, "count", corrupt)
	}

	out := make([]SessionInfo, 0, len(records))
	for sid, rec := range records {
		out = append(out, sessionInfo(sid, rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// LogoutAll drops every session of the user and tells connected devices to
// discard their credentials.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrInvalidInput
	}

	if err := flows.RunLogoutAll(ctx, userID, e.flows.Logout); err != nil {
		e.metricInc(MetricStoreError)
		e.log.Error("session.logout_all.fail", "user_id", userID, "err", err)
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", err, nil)
		return storeError(err)
	}

	e.metricInc(MetricLogoutAll)
	e.log.Info("session.logout_all", "user_id", userID)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)
	return nil
}

func sessionInfo(sessionID string, rec session.Record) SessionInfo {
	return SessionInfo{
		SessionID:      sessionID,
		Role:           rec.Role,
		CurrentProfile: rec.CurrentProfile,
		CreatedAt:      rec.CreatedAt,
	}
}
