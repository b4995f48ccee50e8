// Package dataset holds the in-memory table of named, typed columns that flows
// through the recommendation pipeline, and the CSV loader that builds it.
package dataset

import (
	"fmt"
	"strconv"
)

// Kind is the inferred type of a column.
type Kind int

// Column kinds.
const (
	KindString Kind = iota
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Column is a named vector of values of one Kind. Bool columns store 0/1 in
// the numeric slice so they can be fed to a predictor unchanged.
type Column struct {
	Name string
	Kind Kind

	nums  []float64
	strs  []string
	valid []bool
}

// NewFloatColumn builds a float column with every cell valid.
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindFloat, nums: values, valid: allValid(len(values))}
}

// NewBoolColumn builds a bool column with every cell valid.
func NewBoolColumn(name string, values []bool) *Column {
	nums := make([]float64, len(values))
	for i, v := range values {
		if v {
			nums[i] = 1
		}
	}
	return &Column{Name: name, Kind: KindBool, nums: nums, valid: allValid(len(values))}
}

// NewStringColumn builds a string column with every cell valid.
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: KindString, strs: values, valid: allValid(len(values))}
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.valid) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// Numeric reports whether the column can be read with Float.
func (c *Column) Numeric() bool { return c.Kind == KindFloat || c.Kind == KindBool }

// Float returns cell i as a number. ok is false for nulls and string columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	if !c.Numeric() || !c.valid[i] {
		return 0, false
	}
	return c.nums[i], true
}

// Value renders cell i as text; nulls render as "".
func (c *Column) Value(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.Kind {
	case KindFloat:
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.nums[i] == 1)
	default:
		return c.strs[i]
	}
}

// Table is an ordered set of equally long columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable assembles columns into a table. Columns must share a length and
// have unique names.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		}
		if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; columns are shared.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Require fails with ErrMissingColumn naming the first absent column.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			return fmt.Errorf("%w: %w: %q", ErrParse, ErrMissingColumn, n)
		}
	}
	return nil
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	kept := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !skip[c.Name] {
			kept = append(kept, c)
		}
	}
	out, _ := NewTable(kept...)
	if len(kept) == 0 {
		out.rows = t.rows
	}
	return out
}

// Concat joins t and other column-wise, aligned by row position.
func (t *Table) Concat(other *Table) (*Table, error) {
	if t.rows != other.rows && len(t.cols) > 0 && len(other.cols) > 0 {
		return nil, fmt.Errorf("concat: %d rows vs %d rows", t.rows, other.rows)
	}
	return NewTable(append(t.Columns(), other.cols...)...)
}

// Head renders the first n rows as text, header excluded.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	out := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.cols))
		for i, c := range t.cols {
			row[i] = c.Value(r)
		}
		out[r] = row
	}
	return out
}
