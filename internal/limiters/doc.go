// Package limiters provides the Redis-backed failed-login counter that drives
// account lockout.
//
// # Limiters
//
//   - [LockoutLimiter]: per-principal failure counter with an atomic, seeded INCR.
//
// All limiter methods are nil-safe.
//
// # Architecture boundaries
//
// The limiter owns its own Redis key namespace and error types. The threshold comes
// from [LockoutConfig] supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goSSO or any sibling internal package.
//   - Make policy decisions beyond counting; the Engine decides consequences.
package limiters
