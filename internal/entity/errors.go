package entity

import "errors"

// Domain errors
var (
	// Pipeline errors
	ErrTooManyRequests = errors.New("pipeline at capacity")
	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrMessageTooLong  = errors.New("message too long")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Transcript errors
	ErrUnsupportedFormat = errors.New("unsupported transcript format")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
