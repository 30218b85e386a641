package clean

import "dataclean/internal/table"

// ColumnMissing is one line of a missing-value audit.
type ColumnMissing struct {
	Name    string
	Missing int
	// Ratio is Missing/rows; 0 for a table with no rows.
	Ratio float64
}

// Audit lists missing-value counts in column order.
type Audit []ColumnMissing

// Counts returns the audit as a column → missing-count mapping.
func (a Audit) Counts() map[string]int {
	out := make(map[string]int, len(a))
	for _, c := range a {
		out[c.Name] = c.Missing
	}
	return out
}

// Total is the number of missing cells across all columns.
func (a Audit) Total() int {
	n := 0
	for _, c := range a {
		n += c.Missing
	}
	return n
}

// AuditMissingValues counts missing cells per column. It never fails and
// never modifies t.
func AuditMissingValues(t *table.Table) Audit {
	rows := t.NumRows()
	out := make(Audit, 0, t.NumCols())
	for _, c := range t.Columns() {
		m := c.Missing()
		cm := ColumnMissing{Name: c.Name, Missing: m}
		if rows > 0 {
			cm.Ratio = float64(m) / float64(rows)
		}
		out = append(out, cm)
	}
	return out
}
