package clean

import (
	"sort"
	"strings"
	"time"

	"dataclean/internal/table"
)

// SortByColumn stably sorts rows by the named column. Missing cells go last
// in both directions.
func SortByColumn(t *table.Table, name string, ascending bool) (*table.Table, error) {
	c, err := t.Lookup(name)
	if err != nil {
		return nil, err
	}

	idx := make([]int, t.NumRows())
	for i := range idx {
		idx[i] = i
	}
	cells := c.Cells
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := cells[idx[a]], cells[idx[b]]
		switch {
		case va == nil:
			return false
		case vb == nil:
			return true
		}
		if ascending {
			return compareCells(va, vb) < 0
		}
		return compareCells(va, vb) > 0
	})
	return t.SelectRows(idx), nil
}

// compareCells orders two non-nil cells of the same column type.
func compareCells(a, b any) int {
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}
