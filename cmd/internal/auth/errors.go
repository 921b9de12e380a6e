package auth

import "errors"

var (
	// ErrTokenMissing is returned when a handshake or frame carries no token.
	ErrTokenMissing = errors.New("access token missing")

	// ErrTokenInvalid is returned when an access token fails verification or validation.
	ErrTokenInvalid = errors.New("access token invalid")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid auth config")
)
