// TableSpec lives here so backends can import it without depending on the
// cleaning packages.
package storage

import (
	"fmt"
	"strings"

	"dataclean/internal/table"
)

// Logical column types. Each backend maps them to a native SQL type.
const (
	TypeNumeric   = "numeric"
	TypeText      = "text"
	TypeTimestamp = "timestamp"
)

type TableSpec struct {
	Name        string           `yaml:"name"`
	Columns     []ColumnSpec     `yaml:"columns"`
	Constraints []ConstraintSpec `yaml:"constraints,omitempty"`
}

type ColumnSpec struct {
	Name string `yaml:"name"`
	// Type is one of the logical types above.
	Type string `yaml:"type"`
	// Nullable defaults to true: cleaned tables may keep missing cells.
	Nullable *bool `yaml:"nullable,omitempty"`
}

// IsNullable reports the effective nullability.
func (c ColumnSpec) IsNullable() bool {
	return c.Nullable == nil || *c.Nullable
}

type ConstraintSpec struct {
	Kind    string   `yaml:"kind"` // "unique"
	Columns []string `yaml:"columns"`
}

// LogicalType maps a table column type to a logical storage type.
func LogicalType(t table.Type) string {
	switch t {
	case table.Numeric:
		return TypeNumeric
	case table.Datetime:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// SpecFromTable derives a TableSpec from t's columns, in order.
func SpecFromTable(name string, t *table.Table) TableSpec {
	spec := TableSpec{Name: name, Columns: make([]ColumnSpec, 0, t.NumCols())}
	for _, c := range t.Columns() {
		spec.Columns = append(spec.Columns, ColumnSpec{Name: c.Name, Type: LogicalType(c.Type)})
	}
	return spec
}

// Validate checks the fields every backend relies on.
func (s TableSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("table %s: column name is empty", s.Name)
		}
		if seen[strings.ToLower(name)] {
			return fmt.Errorf("table %s: duplicate column %q", s.Name, name)
		}
		seen[strings.ToLower(name)] = true
		switch c.Type {
		case TypeNumeric, TypeText, TypeTimestamp:
		default:
			return fmt.Errorf("table %s: column %s: unknown type %q", s.Name, c.Name, c.Type)
		}
	}
	for _, con := range s.Constraints {
		if !strings.EqualFold(con.Kind, "unique") {
			return fmt.Errorf("table %s: unsupported constraint kind %q", s.Name, con.Kind)
		}
		if len(con.Columns) == 0 {
			return fmt.Errorf("table %s: unique constraint has no columns", s.Name)
		}
	}
	return nil
}
