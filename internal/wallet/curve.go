package wallet

import "filippo.io/edwards25519"

// IsOnCurve reports whether pub is a valid encoding of an ed25519 point.
// Non-canonical encodings of valid points are accepted.
func IsOnCurve(pub []byte) bool {
	if len(pub) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}
