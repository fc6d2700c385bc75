package authgate

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess     = "register_success"
	auditEventRegisterFailure     = "register_failure"
	auditEventRegisterDuplicate   = "register_duplicate"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginMFARequired    = "login_mfa_required"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshRotated      = "refresh_rotated"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventLogoutSession       = "logout_session"
	auditEventVerificationIssued  = "verification_issued"
	auditEventVerificationConfirm = "verification_confirm"
)

// AuditErrorCode is the normalized error label recorded on audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrVerification       AuditErrorCode = "verification_invalid"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

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
		Timestamp: e.now().UTC(),
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
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrEmailExists):
		return auditErrDuplicate
	case errors.Is(err, ErrRefreshInvalid), errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrVerificationInvalid):
		return auditErrVerification
	case errors.Is(err, ErrVerificationUnavailable), errors.Is(err, ErrSessionCreationFailed):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
