// Package jwt signs and verifies session tokens.
//
// A session token is a JWT carrying the principal id (uid) and the server-side
// session id (sid). It is a bearer reference, not a capability: callers must
// still confirm the session exists in the session store.
package jwt
