// Package internal contains helper utilities that are intentionally private to goSSO,
// including secure random generation and client fingerprint helpers.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: Redis-backed failed-login counter
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSSO API.
//   - Be imported by any package outside the goSSO module.
package internal
