package engine

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
)

// codeBytes is the entropy of a pickup code.  10 bytes (80 bits) encode to
// 16 base32 characters, short enough to type at a counter and far too large
// a space to guess or to collide across concurrently live reservations.
const codeBytes = 10

// codeEncoding is unpadded uppercase base32.  The A-Z/2-7 alphabet avoids
// lookalike characters and renders compactly in a QR code.
var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CodeValidator generates and checks single-use pickup codes.  It holds no
// state of its own; uniqueness across live reservations is enforced by the
// reservation store's duplicate-code rejection plus the engine's retry.
type CodeValidator struct{}

// Generate returns a new random pickup code.  The underlying read from
// crypto/rand guarantees cryptographically secure bytes.
func (CodeValidator) Generate() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return codeEncoding.EncodeToString(b), nil
}

// Check compares the presented code against the reservation's stored code
// in constant time so the comparison leaks nothing about how many leading
// characters matched.
func (CodeValidator) Check(stored, presented string) bool {
	if len(stored) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
