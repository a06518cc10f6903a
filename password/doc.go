// Package password hashes and verifies principal credentials with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so a
// caller can re-hash after the next successful login.
//
// # Boundaries
//
// This package owns hashing and verification only. It never stores
// credentials, never logs plaintext, and imports no other goSSO package.
// The login flow treats a false result from [Argon2.Verify] as invalid
// credentials and any error as a system failure.
package password
