// Package scoring turns an encoded feature table into one predicted value
// per row through a pluggable Predictor.
package scoring

import "context"

// Features is a dense row-major matrix with named columns.
type Features struct {
	Names []string
	Rows  [][]float64
}

// Predictor wraps a trained model's inference call. Implementations return
// exactly one value per row, in row order.
type Predictor interface {
	Predict(ctx context.Context, f Features) ([]float64, error)
}

// Schema is implemented by predictors that know their input columns. The
// Scorer validates and reorders features against it.
type Schema interface {
	FeatureNames() []string
}

// Versioned is implemented by predictors that can name the model revision
// they serve.
type Versioned interface {
	ModelVersion() string
}

// Vocabulary is implemented by predictors whose artifact carries the
// categorical values seen in training.
type Vocabulary interface {
	Categories() map[string][]string
}

// VersionOf returns p's model version, or "unversioned".
func VersionOf(p Predictor) string {
	if v, ok := p.(Versioned); ok && v.ModelVersion() != "" {
		return v.ModelVersion()
	}
	return "unversioned"
}
