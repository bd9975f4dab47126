package soundwave

import "errors"

const (
	auditEventSessionCreated = "session_created"
	auditEventSessionRemoved = "session_removed"
	auditEventProfileUpdated = "profile_updated"
	auditEventLogoutAll      = "logout_all"
	auditEventDeactivation   = "account_deactivation_detected"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrSessionNotFound AuditErrorCode = "session_not_found"
	auditErrInvalidInput    AuditErrorCode = "invalid_input"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidProfile):
		return auditErrInvalidInput
	case errors.Is(err, ErrStoreUnavailable), isSessionStoreError(err):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
