package storeguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeguard/csrf"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginRejected            = "login_rejected"
	auditEventMFARequired              = "mfa_required"
	auditEventMFASuccess               = "mfa_success"
	auditEventMFAFailure               = "mfa_failure"
	auditEventTOTPSetupRequested       = "totp_setup_requested"
	auditEventTOTPEnabled              = "totp_enabled"
	auditEventTOTPDisabled             = "totp_disabled"
	auditEventAccountCreationSuccess   = "account_creation_success"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
	auditEventAccountStatusChange      = "account_status_change"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeReuse      = "password_change_reuse_attempt"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventCSRFRejected             = "csrf_rejected"
	auditEventLogoutSession            = "logout_session"
	auditEventLogoutAll                = "logout_all"
)

// AuditErrorCode is the stable code recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized         AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrInvalidInput         AuditErrorCode = "invalid_input"
	auditErrInvalidToken         AuditErrorCode = "invalid_token"
	auditErrSessionNotFound      AuditErrorCode = "session_not_found"
	auditErrUserNotFound         AuditErrorCode = "user_not_found"
	auditErrAccountDisabled      AuditErrorCode = "account_disabled"
	auditErrAccountDeleted       AuditErrorCode = "account_deleted"
	auditErrPasswordPolicy       AuditErrorCode = "password_policy"
	auditErrPasswordReuse        AuditErrorCode = "password_reuse"
	auditErrSessionCreation      AuditErrorCode = "session_creation_failed"
	auditErrSessionInvalidation  AuditErrorCode = "session_invalidation_failed"
	auditErrTOTPInvalid          AuditErrorCode = "totp_invalid"
	auditErrTOTPAlreadyEnabled   AuditErrorCode = "totp_already_enabled"
	auditErrTOTPNotConfigured    AuditErrorCode = "totp_not_configured"
	auditErrMFAInvalid           AuditErrorCode = "mfa_invalid"
	auditErrMFAExpired           AuditErrorCode = "mfa_expired"
	auditErrCSRFMismatch         AuditErrorCode = "csrf_mismatch"
	auditErrCSRFSessionExpired   AuditErrorCode = "csrf_session_expired"
	auditErrDuplicate            AuditErrorCode = "duplicate"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

// emitAudit builds and dispatches one event. metadataBuilder is only
// invoked when a dispatcher is attached, so hot paths pay nothing for
// audit metadata while auditing is disabled.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountDeleted):
		return auditErrAccountDeleted
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreation
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrTOTPInvalid):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrTOTPAlreadyEnabled):
		return auditErrTOTPAlreadyEnabled
	case errors.Is(err, ErrTOTPNotConfigured):
		return auditErrTOTPNotConfigured
	case errors.Is(err, ErrMFAChallengeInvalid):
		return auditErrMFAInvalid
	case errors.Is(err, ErrMFAChallengeExpired):
		return auditErrMFAExpired
	case errors.Is(err, csrf.ErrTokenMismatch):
		return auditErrCSRFMismatch
	case errors.Is(err, csrf.ErrSessionExpired):
		return auditErrCSRFSessionExpired
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrTOTPUnavailable),
		errors.Is(err, ErrMFAUnavailable),
		errors.Is(err, csrf.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
