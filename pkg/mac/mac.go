// Package mac computes and checks payload authentication tags.
//
// A tag is HMAC-SHA1 keyed with 20-byte key material over header‖body.
// Verification always compares in constant time and reports a single
// failure kind, so a caller learns nothing about why a tag was rejected.
package mac

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
)

// TagSize is the length of an authentication tag in bytes.
const TagSize = sha1.Size

// ErrAuthentication is returned when a tag does not match its message.
var ErrAuthentication = errors.New("authentication failed")

// Tag is an HMAC-SHA1 authentication tag.
type Tag [TagSize]byte

// Hex returns the tag as lowercase hex without separators.
func (t Tag) Hex() string {
	return hex.EncodeToString(t[:])
}

// Sign computes the tag of message under key.
func Sign(message []byte, key keys.Material) Tag {
	return SignWithSecret(message, key[:])
}

// SignWithSecret computes the HMAC-SHA1 of message under an arbitrary
// length secret. Lock payloads always use Sign with key material.
func SignWithSecret(message, secret []byte) Tag {
	h := hmac.New(sha1.New, secret)
	h.Write(message)

	var t Tag
	copy(t[:], h.Sum(nil))
	return t
}

// Verify returns true if tag authenticates message under key.
func Verify(message []byte, key keys.Material, tag []byte) bool {
	want := Sign(message, key)
	return hmac.Equal(want[:], tag)
}

// Check is like Verify but returns ErrAuthentication on mismatch.
func Check(message []byte, key keys.Material, tag []byte) error {
	if !Verify(message, key, tag) {
		return ErrAuthentication
	}
	return nil
}
