// Package encoding expands categorical columns into binary indicator columns.
package encoding

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/mmo/internal/domain/dataset"
)

// DefaultColumns are the categorical keys of an ad spend upload.
var DefaultColumns = []string{"Marketplace", "Ad_group"}

// Option configures an Encoder.
type Option func(*Encoder)

// WithVocabulary pins the indicator universe to a trained vocabulary keyed by
// column name. Values outside it fail with ErrUnseenCategory. An empty map
// keeps the batch-derived behavior.
func WithVocabulary(vocab map[string][]string) Option {
	return func(e *Encoder) {
		if len(vocab) == 0 {
			return
		}
		e.vocab = make(map[string][]string, len(vocab))
		for k, v := range vocab {
			e.vocab[k] = append([]string(nil), v...)
		}
	}
}

// Encoder one-hot encodes a fixed list of categorical columns.
type Encoder struct {
	columns []string
	vocab   map[string][]string
}

// New builds an encoder for columns. With no columns DefaultColumns is used.
func New(columns []string, opts ...Option) *Encoder {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	e := &Encoder{columns: append([]string(nil), columns...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Columns returns the categorical columns in encoding order.
func (e *Encoder) Columns() []string { return append([]string(nil), e.columns...) }

// Trained reports whether a fixed vocabulary is in use.
func (e *Encoder) Trained() bool { return e.vocab != nil }

// IndicatorName is the column name for value of column.
func IndicatorName(column, value string) string {
	return column + "_" + value
}

// Encode returns the indicator columns followed by every column of t.
// Without a vocabulary the universe of each column is the sorted set of
// values present in t, so two uploads can encode differently.
func (e *Encoder) Encode(ctx context.Context, t *dataset.Table) (*dataset.Table, error) {
	var indicators []*dataset.Column
	for _, name := range e.columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %q", ErrEncoding, ErrMissingCategory, name)
		}
		values, err := cellValues(col)
		if err != nil {
			return nil, err
		}
		universe, err := e.universe(name, values)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, oneHot(name, values, universe)...)
	}

	dummies, err := dataset.NewTable(indicators...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	out, err := dummies.Concat(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return out, nil
}

// Features drops the categorical columns from an encoded table, leaving the
// matrix a predictor consumes.
func (e *Encoder) Features(encoded *dataset.Table) *dataset.Table {
	return encoded.Drop(e.columns...)
}

func cellValues(col *dataset.Column) ([]string, error) {
	values := make([]string, col.Len())
	for i := range values {
		if col.IsNull(i) {
			return nil, fmt.Errorf("%w: %w: column %q row %d", ErrEncoding, ErrNullCategory, col.Name, i+1)
		}
		values[i] = col.Value(i)
	}
	return values, nil
}

func (e *Encoder) universe(name string, values []string) ([]string, error) {
	if e.vocab == nil {
		seen := make(map[string]bool)
		var out []string
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return out, nil
	}

	known, ok := e.vocab[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w: no vocabulary for %q", ErrEncoding, ErrUnseenCategory, name)
	}
	set := make(map[string]bool, len(known))
	for _, v := range known {
		set[v] = true
	}
	for i, v := range values {
		if !set[v] {
			return nil, fmt.Errorf("%w: %w: %s=%q at row %d", ErrEncoding, ErrUnseenCategory, name, v, i+1)
		}
	}
	return known, nil
}

func oneHot(name string, values, universe []string) []*dataset.Column {
	pos := make(map[string]int, len(universe))
	for i, v := range universe {
		pos[v] = i
	}
	cells := make([][]bool, len(universe))
	for i := range cells {
		cells[i] = make([]bool, len(values))
	}
	for row, v := range values {
		cells[pos[v]][row] = true
	}
	cols := make([]*dataset.Column, len(universe))
	for i, v := range universe {
		cols[i] = dataset.NewBoolColumn(IndicatorName(name, v), cells[i])
	}
	return cols
}
