package clean

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"dataclean/internal/table"
	"dataclean/internal/transformer/builtin"
)

// Strategy names an imputation method.
type Strategy string

const (
	Mean   Strategy = "mean"
	Median Strategy = "median"
	Mode   Strategy = "mode"
)

// ParseStrategy accepts exactly "mean", "median" or "mode".
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case Mean, Median, Mode:
		return st, nil
	}
	return "", &table.UnsupportedStrategyError{Strategy: s}
}

// ImputeReport describes what ImputeMissing changed.
type ImputeReport struct {
	Strategy Strategy
	// Filled counts replaced cells per column; columns with nothing to fill
	// are absent.
	Filled map[string]int
	// Skipped lists columns that had missing cells but no non-missing value
	// to derive a fill from. They are left as they were.
	Skipped []string
}

// TotalFilled sums Filled.
func (r ImputeReport) TotalFilled() int {
	n := 0
	for _, v := range r.Filled {
		n += v
	}
	return n
}

// ImputeMissing fills missing cells using strategy.
//
// mean and median touch numeric columns only. mode touches every column and
// picks the most frequent value; ties go to the value seen first. An unknown
// strategy returns an UnsupportedStrategyError before anything is computed.
func ImputeMissing(t *table.Table, strategy string) (*table.Table, ImputeReport, error) {
	st, err := ParseStrategy(strategy)
	if err != nil {
		return nil, ImputeReport{}, err
	}

	rep := ImputeReport{Strategy: st, Filled: map[string]int{}}
	out := t
	for _, c := range t.Columns() {
		missing := c.Missing()
		if missing == 0 {
			continue
		}
		if st != Mode && c.Type != table.Numeric {
			continue
		}

		fill, ok := fillValue(c, st)
		if !ok {
			rep.Skipped = append(rep.Skipped, c.Name)
			continue
		}

		nc := c.Clone()
		for i, v := range nc.Cells {
			if v == nil {
				nc.Cells[i] = fill
			}
		}
		if out, err = out.ReplaceColumn(nc); err != nil {
			return nil, ImputeReport{}, err
		}
		rep.Filled[c.Name] = missing
	}
	return out, rep, nil
}

func fillValue(c *table.Column, st Strategy) (any, bool) {
	switch st {
	case Mean:
		xs := presentFloats(c)
		if len(xs) == 0 {
			return nil, false
		}
		return stat.Mean(xs, nil), true
	case Median:
		xs := presentFloats(c)
		if len(xs) == 0 {
			return nil, false
		}
		return median(xs), true
	default:
		return mode(c.Cells)
	}
}

func presentFloats(c *table.Column) []float64 {
	xs := make([]float64, 0, len(c.Cells))
	for _, v := range c.Cells {
		if f, ok := v.(float64); ok && !math.IsNaN(f) {
			xs = append(xs, f)
		}
	}
	return xs
}

// median sorts xs in place.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return stat.Mean(xs[n/2-1:n/2+1], nil)
}

func mode(cells []any) (any, bool) {
	counts := make(map[string]int)
	var (
		order []string
		first = make(map[string]any)
	)
	for _, v := range cells {
		if v == nil {
			continue
		}
		k := builtin.Canonical(v)
		if counts[k] == 0 {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}
	if len(order) == 0 {
		return nil, false
	}
	// Ties resolve to the earliest value.
	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best], true
}
