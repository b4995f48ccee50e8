package auth

import "errors"

// Sentinel kinds for authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrNoSession          = errors.New("session not found or expired")
	ErrSessionStore       = errors.New("session could not be stored")
)
