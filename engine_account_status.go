package goSSO

import (
	"context"
	"errors"
	"time"
)

// UnlockAccount lifts a lock and clears the failure counter. Principals that are
// not locked are left untouched.
func (e *Engine) UnlockAccount(ctx context.Context, userID int64) error {
	p, err := e.getPrincipal(ctx, userID)
	if err != nil {
		return err
	}
	if p.Status != AccountLocked {
		return nil
	}

	err = e.unlockPrincipal(ctx, userID)
	if err == nil {
		e.metricInc(MetricAccountUnlocked)
	}
	e.emitAudit(ctx, auditEventAccountUnlocked, err == nil, userID, "", "", err, func() map[string]string {
		return map[string]string{
			"reason": "admin",
		}
	})
	return err
}

// LockAccount locks an active principal and revokes its sessions.
func (e *Engine) LockAccount(ctx context.Context, userID int64) error {
	err := e.changeStatus(ctx, userID, AccountLocked, AccountActive)
	if err == nil {
		e.metricInc(MetricAccountLocked)
	}
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, userID, "", "", err, func() map[string]string {
		return map[string]string{
			"action": "lock",
		}
	})
	return err
}

// DisableAccount disables a principal, locked or not, and revokes its sessions.
func (e *Engine) DisableAccount(ctx context.Context, userID int64) error {
	err := e.changeStatus(ctx, userID, AccountDisabled, AccountActive, AccountLocked)
	if err == nil {
		e.metricInc(MetricAccountDisabled)
	}
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, userID, "", "", err, func() map[string]string {
		return map[string]string{
			"action": "disable",
		}
	})
	return err
}

// EnableAccount re-enables a disabled principal. Disabling does not lift a lock:
// a principal that was locked when disabled returns to LOCKED with its original
// lock time and still needs UnlockAccount or the auto-unlock delay.
func (e *Engine) EnableAccount(ctx context.Context, userID int64) error {
	target := AccountActive
	p, err := e.getPrincipal(ctx, userID)
	if err == nil {
		at := e.now()
		if !p.LockedAt.IsZero() {
			target, at = AccountLocked, p.LockedAt
		}
		err = e.applyStatus(ctx, p, target, at, AccountDisabled)
	}
	if err == nil {
		e.metricInc(MetricAccountEnabled)
	}
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, userID, "", "", err, func() map[string]string {
		return map[string]string{
			"action": "enable",
			"status": target.String(),
		}
	})
	return err
}

// changeStatus moves userID to status when its current status is one of from.
// Any other current status is a no-op. Entering a blocked status revokes every
// session of the principal.
func (e *Engine) changeStatus(ctx context.Context, userID int64, status AccountStatus, from ...AccountStatus) error {
	p, err := e.getPrincipal(ctx, userID)
	if err != nil {
		return err
	}
	return e.applyStatus(ctx, p, status, e.now(), from...)
}

func (e *Engine) applyStatus(ctx context.Context, p *Principal, status AccountStatus, at time.Time, from ...AccountStatus) error {
	if !statusIn(p.Status, from) {
		return nil
	}
	userID := p.ID

	if err := e.principals.SetPrincipalStatus(ctx, userID, status, at); err != nil {
		return mapPrincipalError(err)
	}

	if accountStatusToError(status) == nil {
		return nil
	}
	return e.revokeSessions(ctx, userID)
}

// revokeSessions deletes every session of a principal that just became blocked.
func (e *Engine) revokeSessions(ctx context.Context, userID int64) error {
	if _, err := e.sessionStore.DeleteAllForUser(ctx, userID); err != nil {
		return errors.Join(systemError(err), errors.New("sessions of blocked principal were not revoked"))
	}
	e.metricInc(MetricSessionInvalidated)
	return nil
}

func (e *Engine) unlockPrincipal(ctx context.Context, userID int64) error {
	if err := e.principals.SetPrincipalStatus(ctx, userID, AccountActive, e.now()); err != nil {
		return mapPrincipalError(err)
	}
	if err := e.principals.ResetLoginFailures(ctx, userID); err != nil {
		return mapPrincipalError(err)
	}
	if err := e.lockout.Reset(ctx, userID); err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("lockout counter reset failed on unlock")
	}
	return nil
}

func (e *Engine) getPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	if e == nil || e.principals == nil {
		return nil, ErrEngineNotReady
	}
	if userID <= 0 {
		return nil, ErrAccountNotFound
	}
	p, err := e.principals.GetPrincipal(ctx, userID)
	if err != nil {
		return nil, mapPrincipalError(err)
	}
	return p, nil
}

func mapPrincipalError(err error) error {
	if errors.Is(err, ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return systemError(err)
}

func statusIn(s AccountStatus, set []AccountStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountLocked:
		return ErrAccountLocked
	default:
		return ErrAccountBlocked
	}
}
