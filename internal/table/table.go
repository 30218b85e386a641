// Package table defines the in-memory tabular dataset that every cleaning
// stage consumes and produces.
//
// A Table is an ordered list of uniquely named, typed columns of equal length.
// Cells are stored positionally as `any`:
//
//   - nil          missing value
//   - float64      Numeric
//   - string       Categorical
//   - time.Time    Datetime
//
// Tables are treated as values: stages build a new Table rather than mutating
// their input. Column cell slices may be shared between tables when a stage
// leaves a column untouched, so callers must not write into Column.Cells of a
// table they did not build themselves.
package table

import (
	"fmt"
	"time"
)

// Type is the logical type tag of a column.
type Type int

const (
	Categorical Type = iota
	Numeric
	Datetime
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Datetime:
		return "datetime"
	default:
		return "categorical"
	}
}

// Column is a named, typed cell sequence.
type Column struct {
	Name  string
	Type  Type
	Cells []any
}

// NewColumn returns a column of n missing cells.
func NewColumn(name string, typ Type, n int) *Column {
	return &Column{Name: name, Type: typ, Cells: make([]any, n)}
}

// Missing counts nil cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Cells {
		if v == nil {
			n++
		}
	}
	return n
}

// Clone returns a column with its own cell slice.
func (c *Column) Clone() *Column {
	cells := make([]any, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Type: c.Type, Cells: cells}
}

// Table is an ordered set of uniquely named columns with equal row counts.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a Table from columns, validating name uniqueness, equal lengths,
// and that every non-nil cell matches its column type.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table: column %d is nil", i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("table: column %d has an empty name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column name %q", c.Name)
		}
		if i == 0 {
			t.rows = len(c.Cells)
		} else if len(c.Cells) != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", c.Name, len(c.Cells), t.rows)
		}
		for r, v := range c.Cells {
			if !cellMatches(c.Type, v) {
				return nil, fmt.Errorf("table: column %q row %d: %T is not a %s cell", c.Name, r, v, c.Type)
			}
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for tests and literals; it panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func cellMatches(typ Type, v any) bool {
	if v == nil {
		return true
	}
	switch typ {
	case Numeric:
		_, ok := v.(float64)
		return ok
	case Datetime:
		_, ok := v.(time.Time)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}

// NumRows returns the row count. A zero-column table has zero rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Lookup is Column returning a ColumnNotFoundError when absent.
func (t *Table) Lookup(name string) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, &ColumnNotFoundError{Column: name}
	}
	return c, nil
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Cells[i]
	}
	return out
}

// SelectRows returns a new table holding the given rows, in the given order.
// A table without columns stays at zero rows.
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for j, c := range t.cols {
		cells := make([]any, len(rows))
		for k, r := range rows {
			cells[k] = c.Cells[r]
		}
		cols[j] = &Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	n := len(rows)
	if len(cols) == 0 {
		n = 0
	}
	return t.rebuild(cols, n)
}

// DropColumns returns a new table without the named columns. Unknown names
// are ignored.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, ok := drop[c.Name]; ok {
			continue
		}
		cols = append(cols, c)
	}
	rows := t.rows
	if len(cols) == 0 {
		rows = 0
	}
	return t.rebuild(cols, rows)
}

// ReplaceColumn returns a new table where the column with c.Name is replaced
// by c, keeping its position. c must have NumRows cells.
func (t *Table) ReplaceColumn(c *Column) (*Table, error) {
	i, ok := t.index[c.Name]
	if !ok {
		return nil, &ColumnNotFoundError{Column: c.Name}
	}
	if len(c.Cells) != t.rows {
		return nil, fmt.Errorf("table: replacement column %q has %d rows, want %d", c.Name, len(c.Cells), t.rows)
	}
	cols := append([]*Column(nil), t.cols...)
	cols[i] = c
	return t.rebuild(cols, t.rows), nil
}

// Clone deep-copies every column's cell slice.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Clone()
	}
	return t.rebuild(cols, t.rows)
}

func (t *Table) rebuild(cols []*Column, rows int) *Table {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return &Table{cols: cols, index: idx, rows: rows}
}
