package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dataclean/internal/storage"
)

// SQL Server limits: 2100 parameters per request and 1000 rows per VALUES
// table constructor. maxParams leaves headroom under the first.
const (
	maxParams = 2000
	maxRows   = 1000
)

// Repo implements storage.Repository for Microsoft SQL Server.
//
// Note on driver registration:
//   - This package does NOT blank-import a SQL Server driver. The application
//     must register the "sqlserver" driver elsewhere (internal/storage/all
//     does).
type Repo struct {
	db dbConn
}

func init() {
	storage.Register("mssql", New)
}

// New constructs a Repo using database/sql and the "sqlserver" driver.
//
// This method validates connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	raw.SetMaxOpenConns(8)
	raw.SetMaxIdleConns(8)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: &sqlDB{db: raw}}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// EnsureTable creates the table unless OBJECT_ID already finds it.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// InsertRows inserts rows in one transaction, chunked to stay within the
// server's parameter and row limits.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	per := rowsPerStatement(len(columns))
	if per == 0 {
		return 0, fmt.Errorf("mssql: insert into %s: %d columns exceed the parameter limit", table, len(columns))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var total int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		q, args := buildBulkInsertSQL(table, columns, rows[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func rowsPerStatement(columns int) int {
	if columns <= 0 {
		return 0
	}
	return min(maxParams/columns, maxRows)
}

func buildCreateSQL(t storage.TableSpec) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		def, err := mssqlColumnDef(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, def)
	}
	for _, con := range t.Constraints {
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, mssqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}
	return wrapCreateIfMissing(t.Name, strings.Join(parts, ", ")), nil
}

// wrapCreateIfMissing wraps a CREATE TABLE statement in an OBJECT_ID guard.
func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(tableName, "'", "''"),
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

func columnType(logical string) (string, error) {
	switch logical {
	case storage.TypeNumeric:
		return "FLOAT", nil
	case storage.TypeTimestamp:
		return "DATETIME2", nil
	case storage.TypeText:
		return "NVARCHAR(MAX)", nil
	}
	return "", fmt.Errorf("mssql: unsupported column type %q", logical)
}

// mssqlColumnDef builds a SQL Server column definition from storage.ColumnSpec.
func mssqlColumnDef(c storage.ColumnSpec) (string, error) {
	typ, err := columnType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(mssqlIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if c.IsNullable() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	return b.String(), nil
}

// buildBulkInsertSQL builds one INSERT ... VALUES statement with @pN
// placeholders numbered from 1.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.imports" -> [dbo].[imports]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is a small interface over *sql.Tx.
type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

var _ dbConn = (*sqlDB)(nil)
