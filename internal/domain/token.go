package domain

import "crypto/subtle"

// UpdateToken is the bearer secret authorizing mutation of one record.
// It shares the RecordID wire format (128-bit random, 32 lowercase hex chars)
// but the two are never interchangeable. Exactly one token value is live for
// a record at any time; every successful update rotates it.
type UpdateToken string

// NewUpdateToken generates a fresh cryptographically random token.
func NewUpdateToken() (UpdateToken, error) {
	s, err := randomHex128()
	if err != nil {
		return "", err
	}
	return UpdateToken(s), nil
}

// ParseUpdateToken validates s and returns it as an UpdateToken.
// Returns ErrInvalidToken on failure.
func ParseUpdateToken(s string) (UpdateToken, error) {
	if !isValidHex128(s) {
		return "", ErrInvalidToken
	}
	return UpdateToken(s), nil
}

// String returns the string form of the UpdateToken.
func (t UpdateToken) String() string { return string(t) }

// Valid reports whether the token satisfies the same rules as ParseUpdateToken.
func (t UpdateToken) Valid() bool { return isValidHex128(string(t)) }

// Matches compares t against the supplied token in constant time so the
// check does not leak a prefix-length timing signal.
func (t UpdateToken) Matches(other UpdateToken) bool {
	return subtle.ConstantTimeCompare([]byte(t), []byte(other)) == 1
}
