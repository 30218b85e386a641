package mssql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"dataclean/internal/storage"
)

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

type fakeTx struct {
	execs      []string
	argCounts  []int
	failOn     int
	committed  bool
	rolledBack bool
}

func (f *fakeTx) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, q)
	f.argCounts = append(f.argCounts, len(args))
	if f.failOn > 0 && len(f.execs) == f.failOn {
		return nil, errors.New("boom")
	}
	return fakeResult(strings.Count(q, "(@p")), nil
}

func (f *fakeTx) Commit() error   { f.committed = true; return nil }
func (f *fakeTx) Rollback() error { f.rolledBack = true; return nil }

type fakeDB struct {
	execs []string
	tx    *fakeTx
}

func (f *fakeDB) ExecContext(_ context.Context, q string, _ ...any) (sql.Result, error) {
	f.execs = append(f.execs, q)
	return fakeResult(0), nil
}

func (f *fakeDB) BeginTx(context.Context, *sql.TxOptions) (txConn, error) { return f.tx, nil }
func (f *fakeDB) Close() error                                            { return nil }

func TestBuildCreateSQL(t *testing.T) {
	no := false
	got, err := buildCreateSQL(storage.TableSpec{
		Name: "dbo.weather",
		Columns: []storage.ColumnSpec{
			{Name: "time", Type: storage.TypeTimestamp, Nullable: &no},
			{Name: "temp", Type: storage.TypeNumeric},
			{Name: "odd]name", Type: storage.TypeText},
		},
		Constraints: []storage.ConstraintSpec{{Kind: "unique", Columns: []string{"time"}}},
	})
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	want := "IF OBJECT_ID(N'dbo.weather', N'U') IS NULL BEGIN CREATE TABLE [dbo].[weather] (" +
		"[time] DATETIME2 NOT NULL, [temp] FLOAT NULL, [odd]]name] NVARCHAR(MAX) NULL, UNIQUE ([time])); END;"
	if got != want {
		t.Fatalf("unexpected DDL:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildBulkInsertSQL(t *testing.T) {
	q, args := buildBulkInsertSQL("w", []string{"a", "b"}, [][]any{{1.0, "x"}, {nil, "y"}})
	want := "INSERT INTO [w] ([a], [b]) VALUES (@p1, @p2), (@p3, @p4)"
	if q != want {
		t.Fatalf("unexpected SQL:\n%s\nwant:\n%s", q, want)
	}
	if len(args) != 4 || args[0] != 1.0 || args[2] != nil || args[3] != "y" {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestRowsPerStatement(t *testing.T) {
	cases := map[int]int{1: 1000, 2: 1000, 3: 666, 7: 285, 2000: 1, 2001: 0, 0: 0}
	for cols, want := range cases {
		if got := rowsPerStatement(cols); got != want {
			t.Errorf("rowsPerStatement(%d) = %d, want %d", cols, got, want)
		}
	}
}

func TestRepo_InsertRowsChunks(t *testing.T) {
	tx := &fakeTx{}
	r := &Repo{db: &fakeDB{tx: tx}}

	rows := make([][]any, 2500)
	for i := range rows {
		rows[i] = []any{float64(i)}
	}
	n, err := r.InsertRows(context.Background(), "t", []string{"v"}, rows)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2500 {
		t.Fatalf("expected 2500 rows, got %d", n)
	}
	if len(tx.argCounts) != 3 || tx.argCounts[0] != 1000 || tx.argCounts[2] != 500 {
		t.Fatalf("unexpected chunking: %v", tx.argCounts)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit only")
	}
}

func TestRepo_InsertRowsRollsBackOnError(t *testing.T) {
	tx := &fakeTx{failOn: 2}
	r := &Repo{db: &fakeDB{tx: tx}}

	rows := make([][]any, 1500)
	for i := range rows {
		rows[i] = []any{"x"}
	}
	if _, err := r.InsertRows(context.Background(), "t", []string{"v"}, rows); err == nil {
		t.Fatalf("expected error")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestRepo_EnsureTable(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{db: db}

	err := r.EnsureTable(context.Background(), storage.TableSpec{
		Name:    "w",
		Columns: []storage.ColumnSpec{{Name: "a", Type: storage.TypeText}},
	})
	if err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(db.execs) != 1 || !strings.HasPrefix(db.execs[0], "IF OBJECT_ID(N'w', N'U') IS NULL") {
		t.Fatalf("unexpected statements: %v", db.execs)
	}

	if err := r.EnsureTable(context.Background(), storage.TableSpec{Name: "w"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
