package service

import "errors"

var (
	// ErrCodeNotFound is returned when an invite code cannot be found
	ErrCodeNotFound = errors.New("invite code not found")

	// ErrCodeExpired is returned when redeeming a code at or after its expiry
	ErrCodeExpired = errors.New("invite code expired")

	// ErrUsageLimitReached is returned when a code has no redemptions left
	ErrUsageLimitReached = errors.New("invite code usage limit reached")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrBatchTooLarge is returned when a batch exceeds the configured maximum
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)
