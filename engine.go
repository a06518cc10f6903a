package goSSO

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goSSO/internal/audit"
	"github.com/MrEthical07/goSSO/internal/limiters"
	"github.com/MrEthical07/goSSO/jwt"
	"github.com/MrEthical07/goSSO/permission"
	"github.com/MrEthical07/goSSO/session"
	"github.com/MrEthical07/goSSO/ticket"
	"github.com/sirupsen/logrus"
)

// Engine is the SSO authority. Build one with [Builder]; it is safe for
// concurrent use and holds no global state.
type Engine struct {
	config       Config
	logger       logrus.FieldLogger
	sessionStore *session.Store
	ticketStore  *ticket.Store
	clients      ticket.Registry
	lockout      *limiters.LockoutLimiter
	permissions  *permission.CachedResolver
	principals   PrincipalStore
	rbac         RBACWriter
	verifier     CredentialVerifier
	dummyHash    string
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	jwtManager   *jwt.Manager
	now          func() time.Time
}

// Close drains pending audit events. The Redis client and stores passed to the
// Builder stay open; their owner closes them.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// Ping checks the shared Redis the engine depends on.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if _, err := e.sessionStore.Ping(ctx); err != nil {
		return systemError(err)
	}
	return nil
}

// ValidateSession resolves a session token to its principal and current grants.
// Remember-me sessions slide as a side effect.
//
// A token is only as good as the session it names: once the session is logged
// out, expired or revoked the token fails with [ErrSessionNotFound].
func (e *Engine) ValidateSession(ctx context.Context, token string) (*AuthResult, error) {
	start := time.Now()
	defer e.metricObserve(MetricValidateLatency, start)

	sess, err := e.sessionFromToken(ctx, token, true)
	if err != nil {
		return nil, err
	}

	grants, err := e.permissions.Grants(ctx, sess.UserID)
	if err != nil {
		return nil, systemError(err)
	}

	return &AuthResult{
		UserID:      sess.UserID,
		SessionID:   sess.SessionID,
		Remember:    sess.Remember,
		Roles:       grants.Roles,
		Permissions: grants.Permissions,
	}, nil
}

// RenewSession pushes the session behind token out by one window, bounded by
// its absolute lifetime, and returns the new expiry.
func (e *Engine) RenewSession(ctx context.Context, token string) (time.Time, error) {
	claims, err := e.parseToken(token)
	if err != nil {
		return time.Time{}, err
	}

	sess, expiresAt, err := e.sessionStore.Renew(ctx, claims.SID)
	if err != nil {
		return time.Time{}, mapSessionError(err)
	}
	if sess.UserID != claims.UID {
		return time.Time{}, ErrTokenInvalid
	}

	e.metricInc(MetricSessionRenewed)
	return expiresAt, nil
}

// Logout revokes the session behind token. Logging out an already revoked
// session succeeds.
func (e *Engine) Logout(ctx context.Context, token string) error {
	return e.logoutToken(ctx, token, auditEventLogoutSession)
}

// SingleLogout is Logout initiated by a client application on behalf of its
// user. Every client learns of it through [Engine.SessionStatus].
func (e *Engine) SingleLogout(ctx context.Context, token string) error {
	err := e.logoutToken(ctx, token, auditEventSingleLogout)
	if err == nil {
		e.metricInc(MetricSingleLogout)
	}
	return err
}

func (e *Engine) logoutToken(ctx context.Context, token, eventType string) error {
	claims, err := e.parseToken(token)
	if err != nil {
		e.emitAudit(ctx, eventType, false, 0, "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "invalid_token",
			}
		})
		return err
	}

	err = e.sessionStore.Delete(ctx, claims.SID)
	if err != nil {
		err = systemError(err)
	} else {
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, eventType, err == nil, claims.UID, claims.SID, "", err, nil)
	return err
}

// LogoutAll revokes every session of userID and returns how many were live.
func (e *Engine) LogoutAll(ctx context.Context, userID int64) (int, error) {
	n, err := e.sessionStore.DeleteAllForUser(ctx, userID)
	if err != nil {
		err = systemError(err)
	} else {
		e.metricInc(MetricLogoutAll)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, err == nil, userID, "", "", err, nil)
	return n, err
}

// ActiveSessions lists the live session ids of userID.
func (e *Engine) ActiveSessions(ctx context.Context, userID int64) ([]string, error) {
	ids, err := e.sessionStore.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return nil, systemError(err)
	}
	return ids, nil
}

func (e *Engine) parseToken(token string) (*jwt.SessionClaims, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseSession(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// sessionFromToken parses token and loads its session. slide selects Get (which
// renews remember-me windows) over Peek.
func (e *Engine) sessionFromToken(ctx context.Context, token string, slide bool) (*session.Session, error) {
	claims, err := e.parseToken(token)
	if err != nil {
		return nil, err
	}

	var sess *session.Session
	if slide {
		sess, err = e.sessionStore.Get(ctx, claims.SID)
	} else {
		sess, _, err = e.sessionStore.Peek(ctx, claims.SID)
	}
	if err != nil {
		return nil, mapSessionError(err)
	}
	if sess.UserID != claims.UID {
		return nil, ErrTokenInvalid
	}
	return sess, nil
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	default:
		return systemError(err)
	}
}
