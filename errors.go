package goSSO

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned when no principal matches the login account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountBlocked is the umbrella for principals that may not log in.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrAccountDisabled is returned for administratively disabled principals.
	ErrAccountDisabled = fmt.Errorf("%w: account disabled", ErrAccountBlocked)
	// ErrAccountLocked is returned for principals locked after repeated failures.
	ErrAccountLocked = fmt.Errorf("%w: account locked", ErrAccountBlocked)
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTicketInvalid covers unknown, expired, consumed and client-mismatched tickets.
	ErrTicketInvalid = errors.New("ticket invalid")
	// ErrClientInvalid is returned when a client or redirect URI is not registered.
	ErrClientInvalid = errors.New("client invalid")
	// ErrPermissionDenied is returned when the principal lacks a required grant.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSystem wraps backing-store and collaborator failures.
	ErrSystem = errors.New("system error")
	// ErrSessionNotFound is returned when the session behind a token is gone.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid is returned for malformed, forged or expired session tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrEngineNotReady is returned when a nil or partially built Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrConflict is returned when an RBAC write would break referential
	// integrity, such as deleting a menu that still has children.
	ErrConflict = errors.New("conflicting state")
	// ErrCacheInvalidation is joined to the result of an RBAC mutation whose write
	// succeeded but whose cache invalidation did not.
	ErrCacheInvalidation = errors.New("permission cache invalidation failed")
)

// Wire codes returned by [ErrorCode].
const (
	CodeOK                 = 0
	CodeInvalidCredentials = 1001
	CodeAccountBlocked     = 1002
	CodeTicketInvalid      = 1003
	CodeClientInvalid      = 1004
	CodePermissionDenied   = 1005
	CodeUnauthorized       = 1006
	CodeConflict           = 1007
	CodeSystem             = 5000
)

// ErrorCode maps an engine error onto its stable wire code. AccountNotFound and
// InvalidCredentials share a code so callers cannot enumerate accounts.
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrAccountBlocked):
		return CodeAccountBlocked
	case errors.Is(err, ErrTicketInvalid):
		return CodeTicketInvalid
	case errors.Is(err, ErrClientInvalid):
		return CodeClientInvalid
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrTokenInvalid):
		return CodeUnauthorized
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeSystem
	}
}

func systemError(err error) error {
	return fmt.Errorf("%w: %v", ErrSystem, err)
}
