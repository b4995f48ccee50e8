package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrAggregation marks input that cannot be aggregated into ranked groups.
	ErrAggregation = errors.New("aggregation error")
	ErrZeroSpend   = errors.New("spend is zero")
	// ErrInvalidGuard marks a recommendation guard that does not compile to a
	// boolean expression.
	ErrInvalidGuard = errors.New("invalid recommendation guard")
	ErrGuardEval    = errors.New("recommendation guard evaluation failed")
)
