package goSSO

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/ticket"
)

// IssueTicket issues a service ticket for a principal that already holds a
// session, so a second client application can sign it in without a password.
func (e *Engine) IssueTicket(ctx context.Context, token, clientID, redirectURI string) (string, error) {
	if clientID == "" || redirectURI == "" {
		return "", ErrClientInvalid
	}
	sess, err := e.sessionFromToken(ctx, token, true)
	if err != nil {
		return "", err
	}
	if !e.clients.Allowed(clientID, redirectURI) {
		e.emitAudit(ctx, auditEventTicketIssued, false, sess.UserID, sess.SessionID, clientID, ErrClientInvalid, func() map[string]string {
			return map[string]string{
				"redirect_uri": redirectURI,
			}
		})
		return "", ErrClientInvalid
	}
	return e.issueTicket(ctx, sess.UserID, sess.SessionID, clientID, redirectURI)
}

func (e *Engine) issueTicket(ctx context.Context, userID int64, sessionID, clientID, redirectURI string) (string, error) {
	if e.ticketStore == nil {
		return "", ErrEngineNotReady
	}

	t, err := e.ticketStore.Issue(ctx, ticket.Binding{
		PrincipalID: userID,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		SessionID:   sessionID,
		IssuedAt:    e.now(),
	})
	if err != nil {
		return "", systemError(err)
	}

	e.metricInc(MetricTicketIssued)
	e.emitAudit(ctx, auditEventTicketIssued, true, userID, sessionID, clientID, nil, nil)
	return t, nil
}

// ValidateTicket redeems t for clientID. A ticket validates at most once and only
// within its TTL; unknown, expired, replayed and client-mismatched tickets all
// fail with [ErrTicketInvalid]. An empty clientID skips the client check.
//
// Redemption also fails when the session the ticket was issued for has ended in
// the meantime.
func (e *Engine) ValidateTicket(ctx context.Context, t, clientID string) (*TicketBinding, error) {
	if e == nil || e.ticketStore == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.metricObserve(MetricTicketValidateLatency, start)

	b, err := e.ticketStore.Consume(ctx, t, clientID)
	if err != nil {
		reason := "not_found"
		switch {
		case errors.Is(err, ticket.ErrClientMismatch):
			reason = "client_mismatch"
		case !errors.Is(err, ticket.ErrNotFound):
			e.emitAudit(ctx, auditEventTicketRejected, false, 0, "", clientID, ErrSystem, nil)
			return nil, systemError(err)
		}
		e.metricInc(MetricTicketRejected)
		e.emitAudit(ctx, auditEventTicketRejected, false, 0, "", clientID, ErrTicketInvalid, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, ErrTicketInvalid
	}

	if _, _, err := e.sessionStore.Peek(ctx, b.SessionID); err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			return nil, systemError(err)
		}
		if err := e.ticketStore.RevokeGrant(ctx, t); err != nil {
			e.logger.WithError(err).Warn("revoking grant of ended session failed")
		}
		e.metricInc(MetricTicketRejected)
		e.emitAudit(ctx, auditEventTicketRejected, false, b.PrincipalID, b.SessionID, clientID, ErrTicketInvalid, func() map[string]string {
			return map[string]string{
				"reason": "session_ended",
			}
		})
		return nil, ErrTicketInvalid
	}

	e.metricInc(MetricTicketValidated)
	e.emitAudit(ctx, auditEventTicketValidated, true, b.PrincipalID, b.SessionID, b.ClientID, nil, nil)

	return &TicketBinding{
		UserID:      b.PrincipalID,
		ClientID:    b.ClientID,
		RedirectURI: b.RedirectURI,
		SessionID:   b.SessionID,
		IssuedAt:    b.IssuedAt,
	}, nil
}

// TicketPermissions returns the grants of the principal behind a redeemed ticket.
func (e *Engine) TicketPermissions(ctx context.Context, t string) (int64, Grants, error) {
	g, err := e.liveGrant(ctx, t)
	if err != nil {
		return 0, Grants{}, err
	}

	grants, err := e.permissions.Grants(ctx, g.PrincipalID)
	if err != nil {
		return 0, Grants{}, systemError(err)
	}
	return g.PrincipalID, grants, nil
}

// RefreshByTicket renews the session behind a redeemed ticket. The ticket itself
// stays spent; only its grant is used.
func (e *Engine) RefreshByTicket(ctx context.Context, t string) (*SessionStatus, error) {
	g, err := e.liveGrant(ctx, t)
	if err != nil {
		return nil, err
	}

	_, expiresAt, err := e.sessionStore.Renew(ctx, g.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrTicketInvalid
		}
		return nil, systemError(err)
	}

	e.metricInc(MetricSessionRenewed)
	e.emitAudit(ctx, auditEventTicketRefreshed, true, g.PrincipalID, g.SessionID, g.ClientID, nil, nil)
	return &SessionStatus{
		Active:    true,
		UserID:    g.PrincipalID,
		ExpiresAt: expiresAt,
	}, nil
}

// SingleLogoutByTicket ends the session behind a redeemed ticket and revokes the
// grant. Every other client holding a grant on that session sees it as inactive
// on its next [Engine.SessionStatus] call.
func (e *Engine) SingleLogoutByTicket(ctx context.Context, t string) (int64, error) {
	g, err := e.grant(ctx, t)
	if err != nil {
		return 0, err
	}

	if err := e.sessionStore.Delete(ctx, g.SessionID); err != nil {
		return 0, systemError(err)
	}
	if err := e.ticketStore.RevokeGrant(ctx, t); err != nil {
		return 0, systemError(err)
	}

	e.metricInc(MetricSingleLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventSingleLogout, true, g.PrincipalID, g.SessionID, g.ClientID, nil, nil)
	return g.PrincipalID, nil
}

// SessionStatus answers whether the session behind a redeemed ticket is still
// alive. An ended session is reported inactive rather than as an error.
func (e *Engine) SessionStatus(ctx context.Context, t string) (*SessionStatus, error) {
	g, err := e.grant(ctx, t)
	if err != nil {
		return nil, err
	}

	_, expiresAt, err := e.sessionStore.Peek(ctx, g.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return &SessionStatus{Active: false, UserID: g.PrincipalID}, nil
		}
		return nil, systemError(err)
	}
	return &SessionStatus{
		Active:    true,
		UserID:    g.PrincipalID,
		ExpiresAt: expiresAt,
	}, nil
}

func (e *Engine) grant(ctx context.Context, t string) (*ticket.Grant, error) {
	if e == nil || e.ticketStore == nil {
		return nil, ErrEngineNotReady
	}
	g, err := e.ticketStore.Grant(ctx, t)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			return nil, ErrTicketInvalid
		}
		return nil, systemError(err)
	}
	return g, nil
}

// liveGrant resolves t to its grant and requires the grant's session to be alive.
func (e *Engine) liveGrant(ctx context.Context, t string) (*ticket.Grant, error) {
	g, err := e.grant(ctx, t)
	if err != nil {
		return nil, err
	}
	if _, _, err := e.sessionStore.Peek(ctx, g.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrTicketInvalid
		}
		return nil, systemError(err)
	}
	return g, nil
}
