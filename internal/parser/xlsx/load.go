// Package xlsx loads the first (or a named) worksheet of an Excel workbook
// into a table.Table using the same header and inference rules as the CSV
// loader.
package xlsx

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	csvparser "dataclean/internal/parser/csv"
	"dataclean/internal/probe"
	"dataclean/internal/table"
)

// Options controls sheet selection and cell interpretation.
type Options struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet         string
	MissingTokens []string
	HeaderMap     map[string]string
	ParseDates    []string
}

// Load reads a workbook. The first row of the sheet is the header.
//
// Errors:
//   - *table.IOError when the file cannot be opened.
//   - *table.ParseError when the file is not a readable workbook, the sheet
//     does not exist, or the header is empty or duplicated.
func Load(path string, opt Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &table.IOError{Op: "open", Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &table.ParseError{Path: path, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &table.ParseError{Path: path, Err: errors.New("workbook has no sheets")}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &table.ParseError{Path: path, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &table.ParseError{Path: path, Line: 1, Err: fmt.Errorf("sheet %q has no header row", sheet)}
	}

	headers, err := csvparser.NormalizeHeaders(rows[0], true, opt.HeaderMap)
	if err != nil {
		return nil, &table.ParseError{Path: path, Line: 1, Err: err}
	}

	missing := probe.MissingSet(opt.MissingTokens)
	raw := make([][]*string, len(headers))
	for r, rec := range rows[1:] {
		// GetRows trims trailing empty cells, so short rows are normal here.
		if len(rec) > len(headers) {
			for _, extra := range rec[len(headers):] {
				if strings.TrimSpace(extra) != "" {
					return nil, &table.ParseError{
						Path: path,
						Line: r + 2,
						Err:  fmt.Errorf("expected %d fields, saw %d", len(headers), len(rec)),
					}
				}
			}
		}
		for i := range headers {
			if i >= len(rec) {
				raw[i] = append(raw[i], nil)
				continue
			}
			v := strings.TrimSpace(rec[i])
			if probe.IsMissing(v, missing) {
				raw[i] = append(raw[i], nil)
				continue
			}
			raw[i] = append(raw[i], &v)
		}
	}

	return csvparser.Build(headers, raw, opt.ParseDates)
}
