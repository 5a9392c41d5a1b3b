// Package domain id.go contains functions to generate, parse, and validate record IDs
package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// RecordID is the canonical identifier for a stored record.
// It is a 128-bit random value encoded as 32 lowercase hex characters.
type RecordID string

// NewRecordID generates a new cryptographically random 128-bit RecordID
// encoded as 32 lowercase hexadecimal characters.
func NewRecordID() (RecordID, error) {
	s, err := randomHex128()
	if err != nil {
		return "", err
	}
	return RecordID(s), nil
}

// ParseRecordID validates s and returns it as a RecordID. It enforces:
// - non-empty
// - length == 32
// - only lowercase [0-9a-f]
// Returns ErrInvalidID on failure.
func ParseRecordID(s string) (RecordID, error) {
	if !isValidHex128(s) {
		return "", ErrInvalidID
	}
	return RecordID(s), nil
}

// String returns the string form of the RecordID.
func (id RecordID) String() string { return string(id) }

// Valid reports whether the ID satisfies the same rules as ParseRecordID.
func (id RecordID) Valid() bool { return isValidHex128(string(id)) }

// randomHex128 returns 16 random bytes rendered as 32 lowercase hex chars.
func randomHex128() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	dst := make([]byte, 32)
	hex.Encode(dst, b[:]) // hex.Encode always produces lowercase
	return string(dst), nil
}

// isValidHex128 performs validation without allocating errors.
func isValidHex128(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
