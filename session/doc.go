// Package session provides Redis-backed session persistence and compact binary session
// encoding for the SSO authority.
//
// # Expiry model
//
// A session key carries an idle-window TTL. Regular sessions keep a fixed TTL set at
// login; remember-me sessions slide that window on every read. Both are capped by the
// absolute lifetime stored in [Session.ExpiresAt], so a busy remember-me session
// still ends eventually.
//
// Every session id is also indexed in a per-user Redis set so that revoke-all can
// find every live session of a principal.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It does NOT
// interpret session tokens, resolve permissions, or enforce login policy; those
// responsibilities belong to the Engine.
package session
