package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dataclean/internal/storage"
)

/*
Repo implements storage.Repository for Postgres.

Rows are loaded with COPY (pgx CopyFrom); the table is created with
CREATE TABLE IF NOT EXISTS, preceded by CREATE SCHEMA IF NOT EXISTS for
schema-qualified names.
*/
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	schemaSQL, baseSQL, err := buildCreateSQL(spec)
	if err != nil {
		return err
	}
	if schemaSQL != "" {
		if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema for %s: %w", spec.Name, err)
		}
	}
	if _, err := r.pool.Exec(ctx, baseSQL); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// InsertRows streams rows with COPY FROM STDIN.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.pool.CopyFrom(ctx, copyIdent(table), columns, pgx.CopyFromRows(rows))
}

// copyIdent turns "schema.table" into a pgx.Identifier.
func copyIdent(name string) pgx.Identifier {
	schema, table := splitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// pgTableIdent quotes a possibly schema-qualified name.
func pgTableIdent(name string) string {
	return copyIdent(name).Sanitize()
}

func columnType(logical string) (string, error) {
	switch logical {
	case storage.TypeNumeric:
		return "DOUBLE PRECISION", nil
	case storage.TypeTimestamp:
		return "TIMESTAMPTZ", nil
	case storage.TypeText:
		return "TEXT", nil
	}
	return "", fmt.Errorf("postgres: unsupported column type %q", logical)
}

// buildColumnDef renders a single column definition.
func buildColumnDef(c storage.ColumnSpec) (string, error) {
	typ, err := columnType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(pgIdent(strings.TrimSpace(c.Name)))
	b.WriteString(" ")
	b.WriteString(typ)
	if !c.IsNullable() {
		b.WriteString(" NOT NULL")
	}
	return b.String(), nil
}

// buildConstraints generates table-level UNIQUE constraints.
func buildConstraints(t storage.TableSpec) []string {
	out := make([]string, 0, len(t.Constraints))
	for _, c := range t.Constraints {
		var b strings.Builder
		b.WriteString("UNIQUE (")
		for i, col := range c.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(strings.TrimSpace(col)))
		}
		b.WriteString(")")
		out = append(out, b.String())
	}
	return out
}

// splitQualifiedName splits a schema-qualified name into (schema, table).
//
// Examples:
//   - "public.countries" => ("public", "countries")
//   - "countries"        => ("", "countries")
//
// Only a single dot is handled; anything else is treated as unqualified.
func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// buildCreateSQL builds the optional schema DDL and the table DDL.
func buildCreateSQL(t storage.TableSpec) (schemaSQL, baseSQL string, err error) {
	if err := t.Validate(); err != nil {
		return "", "", err
	}

	if schema, _ := splitQualifiedName(t.Name); schema != "" {
		schemaSQL = fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schema))
	}

	cols := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		def, err := buildColumnDef(c)
		if err != nil {
			return "", "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		cols = append(cols, def)
	}
	cols = append(cols, buildConstraints(t)...)

	baseSQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`,
		pgTableIdent(t.Name), strings.Join(cols, ", "))
	return schemaSQL, baseSQL, nil
}
