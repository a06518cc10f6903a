package goSSO

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginWithTicket(t *testing.T, env *testEnv) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), LoginRequest{
		Account:     "alice",
		Password:    "correct-horse",
		ClientID:    testClientA,
		RedirectURI: testRedirectA,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Ticket)
	return res
}

func TestTicketValidatesOnce(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)

	b, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.UserID)
	assert.Equal(t, testClientA, b.ClientID)
	assert.Equal(t, testRedirectA, b.RedirectURI)
	assert.Equal(t, res.SessionID, b.SessionID)

	_, err = env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	snap := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricTicketValidated])
	assert.Equal(t, uint64(1), snap.Counters[MetricTicketRejected])
}

func TestTicketClientMismatchBurnsTicket(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)

	_, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientB)
	require.ErrorIs(t, err, ErrTicketInvalid)

	ev := env.waitAudit(t, auditEventTicketRejected)
	assert.Equal(t, "client_mismatch", ev.Metadata["reason"])

	_, err = env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestTicketEmptyClientSkipsCheck(t *testing.T) {
	env := testEngine(t, nil)
	res := loginWithTicket(t, env)

	b, err := env.engine.ValidateTicket(context.Background(), res.Ticket, "")
	require.NoError(t, err)
	assert.Equal(t, testClientA, b.ClientID)
}

func TestTicketExpires(t *testing.T) {
	env := testEngine(t, nil)
	res := loginWithTicket(t, env)

	env.mr.FastForward(5*time.Minute + time.Second)

	_, err := env.engine.ValidateTicket(context.Background(), res.Ticket, testClientA)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestTicketGarbageRejected(t *testing.T) {
	env := testEngine(t, nil)

	_, err := env.engine.ValidateTicket(context.Background(), "not-a-ticket", testClientA)
	assert.ErrorIs(t, err, ErrTicketInvalid)
	assert.Equal(t, CodeTicketInvalid, ErrorCode(err))
}

func TestTicketRejectedAfterSessionEnded(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)

	require.NoError(t, env.engine.Logout(ctx, res.Token))

	_, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.ErrorIs(t, err, ErrTicketInvalid)

	_, err = env.engine.SessionStatus(ctx, res.Ticket)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestIssueTicketForExistingSession(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := env.login(t, "alice", "correct-horse")

	tk, err := env.engine.IssueTicket(ctx, res.Token, testClientB, testRedirectB)
	require.NoError(t, err)

	b, err := env.engine.ValidateTicket(ctx, tk, testClientB)
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, b.SessionID)

	_, err = env.engine.IssueTicket(ctx, res.Token, testClientB, testRedirectA)
	assert.ErrorIs(t, err, ErrClientInvalid)

	_, err = env.engine.IssueTicket(ctx, "garbage", testClientB, testRedirectB)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTicketPermissions(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)

	_, _, err := env.engine.TicketPermissions(ctx, res.Ticket)
	require.ErrorIs(t, err, ErrTicketInvalid, "unredeemed tickets carry no grant")

	_, err = env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.NoError(t, err)

	uid, grants, err := env.engine.TicketPermissions(ctx, res.Ticket)
	require.NoError(t, err)
	assert.Equal(t, int64(1), uid)
	assert.Equal(t, []string{"report"}, grants.Roles)
	assert.Equal(t, []string{"report:view"}, grants.Permissions)
}

func TestRefreshByTicketExtendsSession(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)
	_, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.NoError(t, err)

	env.mr.FastForward(10 * time.Minute)

	st, err := env.engine.RefreshByTicket(ctx, res.Ticket)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, int64(1), st.UserID)
	assert.Equal(t, 30*time.Minute, env.mr.TTL("sso:session:"+res.SessionID))
}

func TestSingleLogoutByTicketEndsSessionEverywhere(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := env.login(t, "alice", "correct-horse")

	tkA, err := env.engine.IssueTicket(ctx, res.Token, testClientA, testRedirectA)
	require.NoError(t, err)
	tkB, err := env.engine.IssueTicket(ctx, res.Token, testClientB, testRedirectB)
	require.NoError(t, err)
	_, err = env.engine.ValidateTicket(ctx, tkA, testClientA)
	require.NoError(t, err)
	_, err = env.engine.ValidateTicket(ctx, tkB, testClientB)
	require.NoError(t, err)

	uid, err := env.engine.SingleLogoutByTicket(ctx, tkA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), uid)

	st, err := env.engine.SessionStatus(ctx, tkB)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Equal(t, int64(1), st.UserID)

	_, err = env.engine.ValidateSession(ctx, res.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.engine.SessionStatus(ctx, tkA)
	assert.ErrorIs(t, err, ErrTicketInvalid)

	_, err = env.engine.RefreshByTicket(ctx, tkB)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestSessionStatusActive(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	res := loginWithTicket(t, env)
	_, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.NoError(t, err)

	st, err := env.engine.SessionStatus(ctx, res.Ticket)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.False(t, st.ExpiresAt.IsZero())
}

func TestGrantsDisabledWhenGrantTTLZero(t *testing.T) {
	env := testEngine(t, func(c *Config) {
		c.Ticket.GrantTTL = 0
	})
	ctx := context.Background()
	res := loginWithTicket(t, env)

	_, err := env.engine.ValidateTicket(ctx, res.Ticket, testClientA)
	require.NoError(t, err)

	_, err = env.engine.SessionStatus(ctx, res.Ticket)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}
