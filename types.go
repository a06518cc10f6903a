package goSSO

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSSO/internal/audit"
	"github.com/MrEthical07/goSSO/permission"
	"github.com/sirupsen/logrus"
)

// AccountStatus represents the lifecycle state of a principal.
//
// LOCKED is entered automatically after repeated credential failures; DISABLED is an
// administrative toggle. Neither may obtain a session.
type AccountStatus uint8

const (
	// AccountActive may log in.
	AccountActive AccountStatus = iota
	// AccountDisabled was switched off by an administrator.
	AccountDisabled
	// AccountLocked reached the failed-login threshold.
	AccountLocked
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountDisabled:
		return "disabled"
	case AccountLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Principal is an authenticatable user account. Principals are never deleted,
// only disabled.
type Principal struct {
	ID             int64
	Account        string
	PasswordHash   string
	Status         AccountStatus
	FailedAttempts int
	LockedAt       time.Time
}

// PrincipalStore is the durable home of principals. Implementations must return
// an error wrapping [ErrAccountNotFound] when no principal matches.
type PrincipalStore interface {
	// FindPrincipal resolves a login account (username, phone or email).
	FindPrincipal(ctx context.Context, account string) (*Principal, error)
	GetPrincipal(ctx context.Context, id int64) (*Principal, error)
	RecordLoginFailure(ctx context.Context, id int64, failures int) error
	ResetLoginFailures(ctx context.Context, id int64) error
	// SetPrincipalStatus stores status. LOCKED stamps LockedAt with at, ACTIVE
	// clears it and DISABLED leaves it alone so a lock survives a disable.
	SetPrincipalStatus(ctx context.Context, id int64, status AccountStatus, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// RBACWriter performs the RBAC mutations whose completion must invalidate the
// permission cache. Engine wraps each call with that invalidation.
type RBACWriter interface {
	AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	RevokeUserRole(ctx context.Context, userID, roleID int64) error
	SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error
	SetRoleEnabled(ctx context.Context, roleID int64, enabled bool) error
	SetMenuEnabled(ctx context.Context, menuID int64, enabled bool) error
	DeleteMenu(ctx context.Context, menuID int64) error
	ListUserIDsByRole(ctx context.Context, roleID int64) ([]int64, error)
}

// CredentialVerifier checks a plaintext password against a stored hash.
// Verify returns false with a nil error on a plain mismatch.
type CredentialVerifier interface {
	Verify(plain, hash string) (bool, error)
	Hash(plain string) (string, error)
}

// CredentialUpgrader is implemented by verifiers whose stored hashes go stale
// when their cost parameters are raised.
type CredentialUpgrader interface {
	NeedsUpgrade(hash string) (bool, error)
}

// LoginRequest is the input of [Engine.Login]. ClientID and RedirectURI together
// request a service ticket for a redirect login.
type LoginRequest struct {
	Account     string
	Password    string
	Remember    bool
	ClientID    string
	RedirectURI string
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Token       string
	SessionID   string
	UserID      int64
	ExpiresAt   time.Time
	Roles       []string
	Permissions []string

	Ticket      string
	RedirectURI string
}

// AuthResult is returned by [Engine.ValidateSession]: the principal behind a live
// session token and its current grants.
type AuthResult struct {
	UserID      int64
	SessionID   string
	Remember    bool
	Roles       []string
	Permissions []string
}

// TicketBinding is what a successfully validated ticket proves.
type TicketBinding struct {
	UserID      int64
	ClientID    string
	RedirectURI string
	SessionID   string
	IssuedAt    time.Time
}

// SessionStatus answers the pull-model "is my session still alive" query.
type SessionStatus struct {
	Active    bool
	UserID    int64
	ExpiresAt time.Time
}

// MenuNode is one node of a principal's navigation tree.
type MenuNode = permission.MenuNode

// Grants are the roles and permission strings of one principal.
type Grants = permission.Grants

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink is an [AuditSink] that writes events as structured log entries.
type LogrusSink = internalaudit.LogrusSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogrusSink creates a [LogrusSink] writing through logger.
func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(logger)
}
