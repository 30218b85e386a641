package clean

import (
	"dataclean/internal/table"
	"dataclean/internal/transformer/builtin"
)

// DropDuplicateRows keeps the first occurrence of every distinct row and
// returns the number of rows removed. Kept rows stay in their original order.
func DropDuplicateRows(t *table.Table) (*table.Table, int) {
	n := t.NumRows()
	if n < 2 {
		return t, 0
	}

	var h builtin.Hash
	seen := make(map[builtin.RowKey]struct{}, n)
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		k := h.Key(t.Row(i))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == n {
		return t, 0
	}
	return t.SelectRows(keep), n - len(keep)
}
