package goSSO

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goSSO/internal"
	"github.com/MrEthical07/goSSO/session"
)

// Login authenticates req and opens a session.
//
// Locked and disabled principals are refused before their password is checked,
// and again once the session exists, so a lock that lands while the password is
// being verified still wins. A wrong password increments the principal's
// failure counter; reaching Lockout.Threshold locks the principal and revokes
// its sessions. A correct password resets the counter.
// When req names both a client and a redirect URI, the result also carries a
// service ticket bound to the new session.
//
// Unknown accounts return [ErrAccountNotFound] and wrong passwords
// [ErrInvalidCredentials]; both map to the same wire code.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.verifier == nil || e.principals == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	account := req.Account
	if account == "" || req.Password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, 0, "", req.ClientID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"account": account,
				"reason":  "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	wantTicket := req.ClientID != "" && req.RedirectURI != ""
	if wantTicket && !e.clients.Allowed(req.ClientID, req.RedirectURI) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, 0, "", req.ClientID, ErrClientInvalid, func() map[string]string {
			return map[string]string{
				"account":      account,
				"reason":       "client_not_registered",
				"redirect_uri": req.RedirectURI,
			}
		})
		return nil, ErrClientInvalid
	}

	p, err := e.principals.FindPrincipal(ctx, account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.burnVerify(req.Password)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, 0, "", req.ClientID, ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"account": account,
					"reason":  "account_not_found",
				}
			})
			return nil, ErrAccountNotFound
		}
		e.emitAudit(ctx, auditEventLoginFailure, false, 0, "", req.ClientID, ErrSystem, func() map[string]string {
			return map[string]string{
				"account": account,
				"reason":  "principal_lookup_failed",
			}
		})
		return nil, systemError(err)
	}

	if p.Status == AccountLocked && e.lockExpired(p) {
		if err := e.unlockPrincipal(ctx, p.ID); err != nil {
			return nil, err
		}
		p.Status = AccountActive
		p.FailedAttempts = 0
		e.metricInc(MetricAccountUnlocked)
		e.emitAudit(ctx, auditEventAccountUnlocked, true, p.ID, "", "", nil, func() map[string]string {
			return map[string]string{
				"reason": "auto_unlock",
			}
		})
	}

	if statusErr := accountStatusToError(p.Status); statusErr != nil {
		return nil, e.refuseBlocked(ctx, p, account, req.ClientID, statusErr)
	}

	ok, err := e.verifier.Verify(req.Password, p.PasswordHash)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", req.ClientID, ErrSystem, func() map[string]string {
			return map[string]string{
				"account": account,
				"reason":  "credential_verifier_failed",
			}
		})
		return nil, systemError(err)
	}
	if !ok {
		return nil, e.recordLoginFailure(ctx, p, account, req.ClientID)
	}

	result, err := e.openSession(ctx, p.ID, req.Remember)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", req.ClientID, err, func() map[string]string {
			return map[string]string{
				"account": account,
				"reason":  "session_create_failed",
			}
		})
		return nil, err
	}

	// The session is saved before this read. A lock committed earlier is seen
	// here; one committed later revokes the session itself.
	current, err := e.principals.GetPrincipal(ctx, p.ID)
	if err != nil {
		e.discardSession(ctx, result.SessionID)
		err = mapPrincipalError(err)
		e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", req.ClientID, err, func() map[string]string {
			return map[string]string{
				"account": account,
				"reason":  "principal_recheck_failed",
			}
		})
		return nil, err
	}
	if statusErr := accountStatusToError(current.Status); statusErr != nil {
		e.discardSession(ctx, result.SessionID)
		return nil, e.refuseBlocked(ctx, current, account, req.ClientID, statusErr)
	}

	e.resetLoginFailures(ctx, current)
	e.upgradeCredential(ctx, p, req.Password)

	if wantTicket {
		t, err := e.issueTicket(ctx, p.ID, result.SessionID, req.ClientID, req.RedirectURI)
		if err != nil {
			e.discardSession(ctx, result.SessionID)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, result.SessionID, req.ClientID, err, func() map[string]string {
				return map[string]string{
					"account": account,
					"reason":  "ticket_issue_failed",
				}
			})
			return nil, err
		}
		result.Ticket = t
		result.RedirectURI = req.RedirectURI
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, p.ID, result.SessionID, req.ClientID, nil, func() map[string]string {
		return map[string]string{
			"account":  account,
			"remember": strconv.FormatBool(req.Remember),
		}
	})

	return result, nil
}

// recordLoginFailure counts a wrong password and locks the principal once the
// threshold is reached. It always returns the error Login should surface.
func (e *Engine) recordLoginFailure(ctx context.Context, p *Principal, account, clientID string) error {
	count, reached, err := e.lockout.RecordFailure(ctx, p.ID, p.FailedAttempts)
	if err != nil {
		// Redis is down: fall back to the durable counter so lockout still holds.
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("lockout counter unavailable, using persisted count")
		count = p.FailedAttempts + 1
		reached = count >= e.config.Lockout.Threshold
	}

	if err := e.principals.RecordLoginFailure(ctx, p.ID, count); err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("persisting login failure count failed")
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", clientID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"account":  account,
			"reason":   "password_mismatch",
			"failures": strconv.Itoa(count),
		}
	})

	if !reached {
		return ErrInvalidCredentials
	}

	if err := e.principals.SetPrincipalStatus(ctx, p.ID, AccountLocked, e.now()); err != nil {
		return systemError(err)
	}
	e.metricInc(MetricAccountLocked)
	e.emitAudit(ctx, auditEventAccountLocked, true, p.ID, "", clientID, nil, func() map[string]string {
		return map[string]string{
			"reason":   "failure_threshold",
			"failures": strconv.Itoa(count),
		}
	})
	if err := e.revokeSessions(ctx, p.ID); err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Error("locked principal keeps live sessions")
		return err
	}
	return ErrInvalidCredentials
}

// refuseBlocked records a login refused because of the principal's status.
func (e *Engine) refuseBlocked(ctx context.Context, p *Principal, account, clientID string, statusErr error) error {
	e.metricInc(MetricLoginFailure)
	e.metricInc(MetricLoginBlocked)
	e.emitAudit(ctx, auditEventLoginFailure, false, p.ID, "", clientID, statusErr, func() map[string]string {
		return map[string]string{
			"account": account,
			"reason":  "account_status",
			"status":  p.Status.String(),
		}
	})
	return statusErr
}

// burnVerify spends one verification on a throwaway hash so an unknown account
// takes as long to reject as a wrong password.
func (e *Engine) burnVerify(plain string) {
	if e.dummyHash == "" {
		return
	}
	_, _ = e.verifier.Verify(plain, e.dummyHash)
}

// upgradeCredential rehashes plain when the verifier reports the stored hash as
// outdated. Failures are logged and never fail the login.
func (e *Engine) upgradeCredential(ctx context.Context, p *Principal, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrader, ok := e.verifier.(CredentialUpgrader)
	if !ok {
		return
	}
	needsUpgrade, err := upgrader.NeedsUpgrade(p.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgradedHash, err := e.verifier.Hash(plain)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("password rehash failed")
		return
	}
	if err := e.principals.UpdatePasswordHash(ctx, p.ID, upgradedHash); err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("persisting upgraded password hash failed")
	}
}

func (e *Engine) resetLoginFailures(ctx context.Context, p *Principal) {
	if err := e.lockout.Reset(ctx, p.ID); err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("lockout counter reset failed")
	}
	if p.FailedAttempts == 0 {
		return
	}
	if err := e.principals.ResetLoginFailures(ctx, p.ID); err != nil {
		e.logger.WithError(err).WithField("user_id", p.ID).Warn("persisted failure count reset failed")
	}
}

func (e *Engine) lockExpired(p *Principal) bool {
	after := e.config.Lockout.AutoUnlockAfter
	if after <= 0 || p.LockedAt.IsZero() {
		return false
	}
	return !e.now().Before(p.LockedAt.Add(after))
}

// openSession creates a session for userID, signs its token and resolves the
// principal's grants. On any failure the session is discarded.
func (e *Engine) openSession(ctx context.Context, userID int64, remember bool) (*LoginResult, error) {
	sessionID, err := internal.NewSessionID()
	if err != nil {
		return nil, systemError(err)
	}

	now := e.now()
	window := e.config.Session.TTL
	if remember {
		window = e.config.Session.RememberTTL
	}
	absolute := now.Add(e.config.Session.AbsoluteLifetime)

	sess := &session.Session{
		SessionID:     sessionID,
		UserID:        userID,
		Remember:      remember,
		Window:        window,
		IPHash:        internal.HashBindingValue(clientIPFromContext(ctx)),
		UserAgentHash: internal.HashBindingValue(userAgentFromContext(ctx)),
		CreatedAt:     now.Unix(),
		ExpiresAt:     absolute.Unix(),
	}

	expiresAt, err := e.sessionStore.Save(ctx, sess)
	if err != nil {
		return nil, systemError(err)
	}

	token, err := e.jwtManager.CreateSession(userID, sessionID, time.Unix(sess.ExpiresAt, 0))
	if err != nil {
		e.discardSession(ctx, sessionID)
		return nil, systemError(err)
	}

	grants, err := e.permissions.Grants(ctx, userID)
	if err != nil {
		e.discardSession(ctx, sessionID)
		return nil, systemError(err)
	}

	return &LoginResult{
		Token:       token,
		SessionID:   sessionID,
		UserID:      userID,
		ExpiresAt:   expiresAt,
		Roles:       grants.Roles,
		Permissions: grants.Permissions,
	}, nil
}

func (e *Engine) discardSession(ctx context.Context, sessionID string) {
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		e.logger.WithError(err).WithField("session_id", sessionID).Warn("discarding half-created session failed")
	}
}
