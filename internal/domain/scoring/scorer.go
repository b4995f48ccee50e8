package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/mmo/internal/domain/dataset"
	"github.com/okian/mmo/pkg/logger"
)

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the scorer's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// Scorer applies a Predictor to an encoded feature table.
type Scorer struct {
	predictor Predictor
	log       logger.Logger
}

// NewScorer wraps p.
func NewScorer(p Predictor, opts ...Option) *Scorer {
	s := &Scorer{predictor: p, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns one prediction per row of t, in row order. When the predictor
// declares its features, t must carry exactly that set; columns are reordered
// to the model's order before predicting.
func (s *Scorer) Score(ctx context.Context, t *dataset.Table) ([]float64, error) {
	names := t.Names()
	if schema, ok := s.predictor.(Schema); ok {
		if want := schema.FeatureNames(); len(want) > 0 {
			if err := compareFeatures(want, names); err != nil {
				return nil, err
			}
			names = want
		}
	}

	f, err := matrix(t, names)
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "scoring features",
		logger.Int("rows", len(f.Rows)),
		logger.Int("features", len(f.Names)),
		logger.String("model", VersionOf(s.predictor)))

	preds, err := s.predictor.Predict(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(preds) != t.NumRows() {
		return nil, fmt.Errorf("%w: %d predictions for %d rows", ErrPredict, len(preds), t.NumRows())
	}
	for i, v := range preds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: prediction for row %d is %v", ErrPredict, i+1, v)
		}
	}
	return preds, nil
}

func compareFeatures(want, have []string) error {
	present := make(map[string]bool, len(have))
	for _, n := range have {
		present[n] = true
	}
	expected := make(map[string]bool, len(want))
	var missing, unexpected []string
	for _, n := range want {
		expected[n] = true
		if !present[n] {
			missing = append(missing, n)
		}
	}
	for _, n := range have {
		if !expected[n] {
			unexpected = append(unexpected, n)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(unexpected, ", "))
	}
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(parts, "; "))
}

func matrix(t *dataset.Table, names []string) (Features, error) {
	cols := make([]*dataset.Column, len(names))
	for i, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return Features{}, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, n)
		}
		if !c.Numeric() {
			return Features{}, fmt.Errorf("%w: feature %q is %s, want numeric", ErrSchemaMismatch, n, c.Kind)
		}
		cols[i] = c
	}
	rows := make([][]float64, t.NumRows())
	for r := range rows {
		row := make([]float64, len(cols))
		for i, c := range cols {
			v, ok := c.Float(r)
			if !ok {
				return Features{}, fmt.Errorf("%w: feature %q is empty at row %d", ErrSchemaMismatch, c.Name, r+1)
			}
			row[i] = v
		}
		rows[r] = row
	}
	return Features{Names: append([]string(nil), names...), Rows: rows}, nil
}
