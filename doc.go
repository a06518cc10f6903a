// Package goSSO is a central single sign-on authority: one service authenticates
// principals, hands short-lived single-use tickets to client applications, and
// answers what a principal may do through cached RBAC resolution.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Flows
//
//   - [Engine.Login] verifies credentials, enforces lockout, creates a session and,
//     for redirect logins, issues a service ticket bound to that session.
//   - [Engine.ValidateTicket] redeems a ticket exactly once for the client it was
//     issued to and leaves a grant handle behind.
//   - [Engine.TicketPermissions], [Engine.RefreshByTicket], [Engine.SingleLogoutByTicket]
//     and [Engine.SessionStatus] operate on that grant.
//   - RBAC mutation hooks such as [Engine.AssignUserRoles] write through an
//     [RBACWriter] and invalidate cached grants before returning.
//
// # Architecture boundaries
//
// goSSO is the public surface: [Engine], [Builder], [Config], errors and value types.
// Redis stores live in session, ticket and permission; the relational source lives
// in sqlstore; lockout counting and audit dispatch are internal.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store encodings in its public API.
//   - Perform I/O during construction beyond what Build documents.
//   - Import sqlstore or any other sub-package that imports goSSO.
package goSSO
