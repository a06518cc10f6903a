// Package middleware exposes HTTP middleware that puts goSSO session validation
// and access control in front of handlers.
//
// # Guards
//
//   - [Guard] validates the bearer session token and injects the [goSSO.AuthResult].
//   - [RequirePermission] admits requests whose grants satisfy a boolean expression.
//   - [RequireAnyRole] admits requests holding at least one of the named roles.
//
// Access rules are attached explicitly per route. Expressions use the
// go-bexpr grammar over the selectors roles, permissions and user_id, for
// example:
//
//	"report:view" in permissions and "auditor" not in roles
//
// and are compiled once when the middleware is constructed.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Session decisions are
// delegated to Engine.ValidateSession; grants are read from the validated result.
//
// # What this package must NOT do
//
//   - Parse or create session tokens directly.
//   - Access Redis or the RBAC tables.
package middleware
