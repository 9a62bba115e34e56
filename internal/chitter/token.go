package chitter

import (
	"crypto/rand"
	"encoding/hex"
)

// NewToken generates an opaque 128-bit bearer token, hex-encoded. Tokens are looked up by equality, never decoded or
// parsed as claims.
func NewToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("chitter: failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
