package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dataclean/internal/storage"
)

// maxVars is SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxVars = 32766

// Repo implements storage.Repository for SQLite.
//
// SQLite has no native timestamp type; timestamps are stored as RFC3339Nano
// UTC strings (TEXT affinity), which sort and compare correctly as text.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database at cfg.DSN (a file path or "file:" URI).
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable runs CREATE TABLE IF NOT EXISTS for spec.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// InsertRows performs multi-row inserts inside one transaction, split so no
// statement exceeds SQLite's bind-variable limit.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: insert into %s: no columns", table)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	per := maxVars / len(columns)
	var total int64
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
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

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// sqlTableIdent quotes each part of a possibly schema-qualified name
// ("main.weather" -> "main"."weather").
func sqlTableIdent(name string) string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for i := range parts {
		parts[i] = sqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

func columnType(logical string) (string, error) {
	switch logical {
	case storage.TypeNumeric:
		return "REAL", nil
	case storage.TypeTimestamp, storage.TypeText:
		return "TEXT", nil
	}
	return "", fmt.Errorf("sqlite: unsupported column type %q", logical)
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	var parts []string
	for _, c := range t.Columns {
		typ, err := columnType(c.Type)
		if err != nil {
			return "", err
		}
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), typ)
		if !c.IsNullable() {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		var cols []string
		for _, c := range con.Columns {
			cols = append(cols, sqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlTableIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL builds one multi-row INSERT with ? placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlTableIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		for _, v := range row {
			args = append(args, sqliteValue(v))
		}
	}
	return b.String(), args
}

func sqliteValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatSQLiteTime(t)
	}
	return v
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
