package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	acsv "github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

const defaultMaxBytes = 32 << 20

// Option configures Load.
type Option func(*loader)

type loader struct {
	maxBytes int64
	floats   map[string]bool
}

// WithMaxBytes caps how much of the stream is read.
func WithMaxBytes(n int64) Option {
	return func(l *loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithFloatColumns forces the named columns to float regardless of content.
// Spend and Sales are always forced.
func WithFloatColumns(names ...string) Option {
	return func(l *loader) {
		for _, n := range names {
			l.floats[n] = true
		}
	}
}

// Load parses CSV content with a header row into a Table. Column types are
// inferred over every row: a column is float when all non-empty cells parse
// as numbers, bool when they are all true/false literals, string otherwise.
// Empty cells become nulls. All failures wrap ErrParse.
func Load(ctx context.Context, r io.Reader, opts ...Option) (*Table, error) {
	l := &loader{
		maxBytes: defaultMaxBytes,
		floats:   map[string]bool{"Spend": true, "Sales": true},
	}
	for _, opt := range opts {
		opt(l)
	}

	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", ErrParse, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %w (%d bytes)", ErrParse, ErrTooLarge, l.maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrEmpty)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header, kinds, rows, err := l.scan(data)
	if err != nil {
		return nil, err
	}

	schema := arrowSchema(header, kinds)
	rdr := acsv.NewReader(bytes.NewReader(data), schema,
		acsv.WithAllocator(memory.NewGoAllocator()),
		acsv.WithHeader(true),
		acsv.WithChunk(-1),
		acsv.WithNullReader(true, ""),
	)
	defer rdr.Release()

	builders := newBuilders(header, kinds, rows)
	for rdr.Next() {
		rec := rdr.Record()
		for i := range header {
			builders[i].append(rec.Column(i))
		}
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	cols := make([]*Column, len(builders))
	for i, b := range builders {
		cols[i] = b.col
	}
	t, err := NewTable(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if t.NumRows() != rows {
		return nil, fmt.Errorf("%w: decoded %d of %d rows", ErrParse, t.NumRows(), rows)
	}
	return t, nil
}

// scan validates the CSV shape and infers a kind per column.
func (l *loader) scan(data []byte) ([]string, []Kind, int, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	header, err := cr.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: header: %w", ErrParse, err)
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, nil, 0, fmt.Errorf("%w: column %d has no name", ErrParse, i+1)
		}
		if seen[h] {
			return nil, nil, 0, fmt.Errorf("%w: %w: %q", ErrParse, ErrDuplicateColumn, h)
		}
		seen[h] = true
		header[i] = h
	}

	numeric := make([]bool, len(header))
	boolean := make([]bool, len(header))
	// First NaN or Inf cell per column, reported only if the column is numeric.
	nonFinite := make([]error, len(header))
	for i := range header {
		numeric[i], boolean[i] = true, true
	}

	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%w: %w", ErrParse, err)
		}
		rows++
		for i, cell := range rec {
			if cell == "" {
				continue
			}
			if numeric[i] {
				v, err := strconv.ParseFloat(cell, 64)
				switch {
				case err != nil:
					numeric[i] = false
				case nonFinite[i] == nil && (math.IsNaN(v) || math.IsInf(v, 0)):
					nonFinite[i] = fmt.Errorf("%w: %w: column %q row %d is %q", ErrParse, ErrNonFinite, header[i], rows, cell)
				}
			}
			if boolean[i] && !isBoolLiteral(cell) {
				boolean[i] = false
			}
		}
	}
	if rows == 0 {
		return nil, nil, 0, fmt.Errorf("%w: no data rows", ErrParse)
	}

	kinds := make([]Kind, len(header))
	for i, h := range header {
		switch {
		case l.floats[h] || numeric[i]:
			if nonFinite[i] != nil {
				return nil, nil, 0, nonFinite[i]
			}
			kinds[i] = KindFloat
		case boolean[i]:
			kinds[i] = KindBool
		default:
			kinds[i] = KindString
		}
	}
	return header, kinds, rows, nil
}

func isBoolLiteral(s string) bool {
	switch s {
	case "true", "false", "True", "False":
		return true
	}
	return false
}

func arrowSchema(header []string, kinds []Kind) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	for i, h := range header {
		var dt arrow.DataType
		switch kinds[i] {
		case KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: h, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// columnBuilder copies arrow arrays into a Column as records arrive.
type columnBuilder struct {
	col *Column
}

func newBuilders(header []string, kinds []Kind, rows int) []*columnBuilder {
	out := make([]*columnBuilder, len(header))
	for i, h := range header {
		c := &Column{Name: h, Kind: kinds[i], valid: make([]bool, 0, rows)}
		if kinds[i] == KindString {
			c.strs = make([]string, 0, rows)
		} else {
			c.nums = make([]float64, 0, rows)
		}
		out[i] = &columnBuilder{col: c}
	}
	return out
}

func (b *columnBuilder) append(arr arrow.Array) {
	c := b.col
	for i := 0; i < arr.Len(); i++ {
		valid := arr.IsValid(i)
		c.valid = append(c.valid, valid)
		switch a := arr.(type) {
		case *array.Float64:
			c.nums = append(c.nums, a.Value(i))
		case *array.Boolean:
			v := 0.0
			if valid && a.Value(i) {
				v = 1
			}
			c.nums = append(c.nums, v)
		case *array.String:
			c.strs = append(c.strs, a.Value(i))
		default:
			c.strs = append(c.strs, arr.ValueStr(i))
		}
	}
}
