package goSSO

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventAccountLocked     = "account_locked"
	auditEventAccountUnlocked   = "account_unlocked"
	auditEventAccountStatus     = "account_status_change"
	auditEventLogoutSession     = "logout_session"
	auditEventLogoutAll         = "logout_all"
	auditEventSingleLogout      = "single_logout"
	auditEventTicketIssued      = "ticket_issued"
	auditEventTicketValidated   = "ticket_validated"
	auditEventTicketRejected    = "ticket_rejected"
	auditEventTicketRefreshed   = "ticket_refreshed"
	auditEventPermissionChanged = "permission_changed"
)

// AuditErrorCode is the stable, low-cardinality error tag carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrTicketInvalid      AuditErrorCode = "ticket_invalid"
	auditErrClientInvalid      AuditErrorCode = "client_invalid"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrCacheInvalidation  AuditErrorCode = "cache_invalidation_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	sessionID string,
	clientID string,
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
		ClientID:  clientID,
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
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrTicketInvalid):
		return auditErrTicketInvalid
	case errors.Is(err, ErrClientInvalid):
		return auditErrClientInvalid
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrCacheInvalidation):
		return auditErrCacheInvalidation
	case errors.Is(err, ErrSystem):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
