package clean

import (
	"fmt"

	"dataclean/internal/table"
	"dataclean/internal/transformer/builtin"
)

// Suffixes appended to column names present on both sides of a merge.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// Merge inner-joins left and right on leftKey == rightKey.
//
// Rows come out in left order; each left row is followed by its matches in
// right order. When both keys share a name the output has a single key
// column. Other names present on both sides get LeftSuffix / RightSuffix.
// Missing keys never match. Both key columns must have the same type.
func Merge(left, right *table.Table, leftKey, rightKey string) (*table.Table, error) {
	lk, err := left.Lookup(leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.Lookup(rightKey)
	if err != nil {
		return nil, err
	}
	if lk.Type != rk.Type {
		return nil, &table.ConversionError{
			Column: rightKey,
			Type:   lk.Type,
			Reason: fmt.Sprintf("join key is %s, left key %q is %s", rk.Type, leftKey, lk.Type),
		}
	}

	byKey := make(map[string][]int, right.NumRows())
	for i, v := range rk.Cells {
		if v == nil {
			continue
		}
		k := builtin.Canonical(v)
		byKey[k] = append(byKey[k], i)
	}

	var lrows, rrows []int
	for i, v := range lk.Cells {
		if v == nil {
			continue
		}
		for _, j := range byKey[builtin.Canonical(v)] {
			lrows = append(lrows, i)
			rrows = append(rrows, j)
		}
	}

	sharedKey := leftKey == rightKey
	overlap := make(map[string]bool)
	for _, name := range right.ColumnNames() {
		if sharedKey && name == rightKey {
			continue
		}
		if _, ok := left.Column(name); ok {
			overlap[name] = true
		}
	}

	cols := make([]*table.Column, 0, left.NumCols()+right.NumCols())
	for _, c := range left.Columns() {
		name := c.Name
		if overlap[name] {
			name += LeftSuffix
		}
		cols = append(cols, gather(c, name, lrows))
	}
	for _, c := range right.Columns() {
		if sharedKey && c.Name == rightKey {
			continue
		}
		name := c.Name
		if overlap[name] {
			name += RightSuffix
		}
		cols = append(cols, gather(c, name, rrows))
	}

	out, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return out, nil
}

func gather(c *table.Column, name string, rows []int) *table.Column {
	out := table.NewColumn(name, c.Type, len(rows))
	for k, r := range rows {
		out.Cells[k] = c.Cells[r]
	}
	return out
}
