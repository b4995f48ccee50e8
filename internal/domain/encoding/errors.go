package encoding

import "errors"

// Sentinel kinds for encoding errors.
var (
	// ErrEncoding marks every encoder failure.
	ErrEncoding        = errors.New("encoding error")
	ErrNullCategory    = errors.New("category value is missing")
	ErrUnseenCategory  = errors.New("category value not in vocabulary")
	ErrMissingCategory = errors.New("categorical column not found")
)
