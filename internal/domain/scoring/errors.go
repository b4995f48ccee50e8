package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrModelLoad marks a model artifact that is missing or cannot be decoded.
	ErrModelLoad = errors.New("model load error")
	// ErrSchemaMismatch marks a feature set that does not match the model.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrPredict marks a predictor that failed or returned an unusable result.
	ErrPredict = errors.New("prediction failed")
)
