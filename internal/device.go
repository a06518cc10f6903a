package internal

import "crypto/sha256"

// HashBindingValue hashes a client-supplied value (IP, User-Agent) so sessions
// never store it in clear.
func HashBindingValue(v string) [32]byte {
	if v == "" {
		return [32]byte{}
	}
	return sha256.Sum256([]byte(v))
}
