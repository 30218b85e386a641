package clean

import "dataclean/internal/table"

// PruneSparseColumns drops every column whose missing ratio strictly exceeds
// threshold and returns the dropped names in column order.
//
// With threshold 1 nothing is dropped; with threshold 0 every column holding
// at least one missing cell is dropped. Dropping every column yields a
// zero-column table, not an error.
func PruneSparseColumns(t *table.Table, threshold float64) (*table.Table, []string) {
	var dropped []string
	for _, c := range AuditMissingValues(t) {
		if c.Ratio > threshold {
			dropped = append(dropped, c.Name)
		}
	}
	if len(dropped) == 0 {
		return t, nil
	}
	return t.DropColumns(dropped...), dropped
}
