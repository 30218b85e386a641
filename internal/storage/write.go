package storage

import (
	"context"
	"fmt"

	"dataclean/internal/table"
)

// DefaultBatchSize is used when WriteOptions.BatchSize is not positive.
const DefaultBatchSize = 500

// WriteOptions controls WriteTable.
type WriteOptions struct {
	BatchSize int
	// Unique adds a UNIQUE constraint over these columns when the table is
	// created.
	Unique []string
}

// WriteTable creates the destination table if needed and inserts every row
// of t in batches. It returns the number of rows the backend reported as
// inserted. A failure mid-way leaves the earlier batches in place.
func WriteTable(ctx context.Context, repo Repository, name string, t *table.Table, opt WriteOptions) (int64, error) {
	spec := SpecFromTable(name, t)
	if len(opt.Unique) > 0 {
		spec.Constraints = append(spec.Constraints, ConstraintSpec{Kind: "unique", Columns: opt.Unique})
	}
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return 0, fmt.Errorf("ensure table %s: %w", name, err)
	}

	batch := opt.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	columns := t.ColumnNames()

	var total int64
	for from := 0; from < t.NumRows(); from += batch {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rows := RowValues(t, from, from+batch)
		n, err := repo.InsertRows(ctx, name, columns, rows)
		total += n
		if err != nil {
			return total, fmt.Errorf("insert rows %d..%d into %s: %w", from, from+len(rows)-1, name, err)
		}
	}
	return total, nil
}
