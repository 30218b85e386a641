// Package sink writes a table.Table to a file.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dataclean/internal/probe"
	"dataclean/internal/table"
)

// Format is an output file format.
type Format int

const (
	CSV Format = iota
	XLSX
)

// FormatFor picks the format from the path extension: ".xlsx" (any case) is
// XLSX, everything else CSV.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return XLSX
	}
	return CSV
}

// Options tunes the CSV writer.
type Options struct {
	// Comma is the CSV delimiter. Zero means ','.
	Comma rune
	// Sheet names the XLSX worksheet. Empty means "Sheet1".
	Sheet string
}

// Save writes t to path with a header row and no index column. Every error
// is a *table.IOError.
func Save(t *table.Table, path string, opt Options) error {
	if FormatFor(path) == XLSX {
		return saveXLSX(t, path, opt)
	}
	return saveCSV(t, path, opt)
}

// FormatCell renders one cell as output text. Missing cells are empty.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return probe.FormatTimestamp(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func saveCSV(t *table.Table, path string, opt Options) error {
	f, err := os.Create(path)
	if err != nil {
		return &table.IOError{Op: "create", Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if opt.Comma != 0 {
		w.Comma = opt.Comma
	}
	if err := w.Write(t.ColumnNames()); err != nil {
		f.Close()
		return &table.IOError{Op: "write", Path: path, Err: err}
	}

	cols := t.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			rec[j] = FormatCell(c.Cells[i])
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return &table.IOError{Op: "write", Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &table.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &table.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

func saveXLSX(t *table.Table, path string, opt Options) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &table.IOError{Op: "close", Path: path, Err: cerr}
		}
	}()

	sheet := "Sheet1"
	if opt.Sheet != "" && opt.Sheet != sheet {
		if err := f.SetSheetName(sheet, opt.Sheet); err != nil {
			return &table.IOError{Op: "write", Path: path, Err: err}
		}
		sheet = opt.Sheet
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return &table.IOError{Op: "write", Path: path, Err: err}
	}

	header := make([]any, t.NumCols())
	for j, name := range t.ColumnNames() {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return &table.IOError{Op: "write", Path: path, Err: err}
	}

	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			switch v := c.Cells[i].(type) {
			case nil:
			case float64:
				row[j] = v
			default:
				row[j] = FormatCell(v)
			}
		}
		cell, cerr := excelize.CoordinatesToCellName(1, i+2)
		if cerr != nil {
			return &table.IOError{Op: "write", Path: path, Err: cerr}
		}
		if err := sw.SetRow(cell, row); err != nil {
			return &table.IOError{Op: "write", Path: path, Err: err}
		}
	}
	if err := sw.Flush(); err != nil {
		return &table.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.SaveAs(path); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return &table.IOError{Op: "create", Path: path, Err: err}
		}
		return &table.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
