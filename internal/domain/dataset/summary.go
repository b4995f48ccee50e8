package dataset

// ColumnSummary profiles one column for the discovery page.
type ColumnSummary struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	NonNull  int      `json:"non_null"`
	Missing  int      `json:"missing"`
	Distinct int      `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
}

// Summary profiles every column of t.
func (t *Table) Summary() []ColumnSummary {
	out := make([]ColumnSummary, len(t.cols))
	for i, c := range t.cols {
		out[i] = summarize(c)
	}
	return out
}

func summarize(c *Column) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Kind.String()}
	distinct := make(map[string]struct{})
	var sum, lo, hi float64
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			s.Missing++
			continue
		}
		s.NonNull++
		distinct[c.Value(i)] = struct{}{}
		if v, ok := c.Float(i); ok && c.Kind == KindFloat {
			if s.NonNull == 1 || v < lo {
				lo = v
			}
			if s.NonNull == 1 || v > hi {
				hi = v
			}
			sum += v
		}
	}
	s.Distinct = len(distinct)
	if c.Kind == KindFloat && s.NonNull > 0 {
		mean := sum / float64(s.NonNull)
		s.Min, s.Max, s.Mean = &lo, &hi, &mean
	}
	return s
}
