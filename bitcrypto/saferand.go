package bitcrypto

import "crypto/rand"

// RandRead fills b with cryptographically secure random bytes, panicking on
// a read failure since there is no safe fallback for key/nonce generation.
func RandRead(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
}
