// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidID       = errors.New("invalid record id")
	ErrInvalidToken    = errors.New("invalid update token")
	ErrInvalidType     = errors.New("invalid payment type")
	ErrInvalidMetadata = errors.New("metadata must be a JSON object")
)
