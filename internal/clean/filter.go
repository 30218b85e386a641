package clean

import (
	"fmt"
	"math"
	"sort"

	"dataclean/internal/table"
)

// Range is an inclusive [Min, Max] bound on a numeric column.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the range. NaN never does.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// FilterByRange keeps rows where every listed column holds a value inside its
// range and returns the number of rows removed. A missing cell fails its
// predicate. Every column is checked before any row is dropped, so an unknown
// or non-numeric column fails the call without a partial result.
func FilterByRange(t *table.Table, preds map[string]Range) (*table.Table, int, error) {
	if len(preds) == 0 {
		return t, 0, nil
	}

	names := make([]string, 0, len(preds))
	for name := range preds {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]*table.Column, len(names))
	for i, name := range names {
		c, err := t.Lookup(name)
		if err != nil {
			return nil, 0, err
		}
		if c.Type != table.Numeric {
			return nil, 0, &table.ConversionError{Column: name, Type: table.Numeric, Reason: "range predicates need a numeric column"}
		}
		r := preds[name]
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max {
			return nil, 0, fmt.Errorf("range for column %q is empty: %s", name, r)
		}
		cols[i] = c
	}

	n := t.NumRows()
	keep := make([]int, 0, n)
rows:
	for i := 0; i < n; i++ {
		for j, c := range cols {
			v, ok := c.Cells[i].(float64)
			if !ok || !preds[names[j]].Contains(v) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == n {
		return t, 0, nil
	}
	return t.SelectRows(keep), n - len(keep), nil
}
