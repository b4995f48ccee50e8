package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	// ErrParse marks uploads that are not usable CSV. Every loader failure wraps it.
	ErrParse           = errors.New("parse error")
	ErrEmpty           = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrMissingColumn   = errors.New("missing required column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrNonFinite       = errors.New("number is not finite")
)
