package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrMissingFile = errors.New("upload carries no file")
	ErrBadLimit    = errors.New("limit must be a positive integer")
	ErrNoUser      = errors.New("username and password are required")
)
