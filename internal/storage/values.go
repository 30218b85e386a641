package storage

import (
	"math"
	"time"

	"dataclean/internal/table"
)

// CellValue converts a table cell to a database/sql (or pgx) argument.
//
// Missing cells and NaN become nil (SQL NULL). Timestamps are passed as UTC
// time.Time; backends without a native timestamp type format them further.
func CellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

// RowValues returns rows [from, to) of t as insert arguments, in column order.
func RowValues(t *table.Table, from, to int) [][]any {
	if from < 0 {
		from = 0
	}
	if to > t.NumRows() {
		to = t.NumRows()
	}
	if from >= to {
		return nil
	}
	cols := t.Columns()
	out := make([][]any, 0, to-from)
	for i := from; i < to; i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = CellValue(c.Cells[i])
		}
		out = append(out, row)
	}
	return out
}
