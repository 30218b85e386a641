// Package csv loads delimited text files into a table.Table.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"dataclean/internal/probe"
	"dataclean/internal/table"
)

// Options controls how a file is read. The zero value reads UTF-8,
// comma-separated input with a header row, trimming cells and using the
// default missing tokens.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Encoding is a WHATWG/IANA encoding label ("utf-8", "windows-1254",
	// "iso-8859-9", ...). Empty means UTF-8.
	Encoding string
	// MissingTokens replaces probe.DefaultMissingTokens when non-nil.
	MissingTokens []string
	// KeepSpace disables trimming of header names and cells.
	KeepSpace bool
	// LazyQuotes relaxes quote handling (see encoding/csv).
	LazyQuotes bool
	// HeaderMap renames source headers (after trimming) before use.
	HeaderMap map[string]string
	// ParseDates lists columns that should be inferred as datetime when every
	// present cell parses as a timestamp.
	ParseDates []string
}

// Load reads the whole file at path into a Table.
//
// Errors:
//   - *table.IOError when the file cannot be opened or read.
//   - *table.ParseError when the content is not well-formed tabular data:
//     malformed quoting, a row with more fields than the header, a missing
//     header row, or duplicate header names.
//
// Rows with fewer fields than the header are padded with missing cells.
func Load(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &table.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r, err := decodingReader(f, opt.Encoding)
	if err != nil {
		return nil, &table.ParseError{Path: path, Err: err}
	}
	return Read(r, path, opt)
}

// Read parses CSV from r. name is used only in error messages.
func Read(r io.Reader, name string, opt Options) (*table.Table, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	trim := !opt.KeepSpace
	missing := probe.MissingSet(opt.MissingTokens)

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, &table.ParseError{Path: name, Line: 1, Err: errors.New("no header row")}
	}
	if err != nil {
		return nil, readErr(name, err)
	}
	headers, err := NormalizeHeaders(hdr, trim, opt.HeaderMap)
	if err != nil {
		return nil, &table.ParseError{Path: name, Line: 1, Err: err}
	}

	raw := make([][]*string, len(headers))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readErr(name, err)
		}
		if len(rec) > len(headers) {
			line, _ := cr.FieldPos(0)
			return nil, &table.ParseError{
				Path: name,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(headers), len(rec)),
			}
		}
		for i := range headers {
			if i >= len(rec) {
				raw[i] = append(raw[i], nil)
				continue
			}
			v := rec[i]
			if trim && hasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			if probe.IsMissing(v, missing) {
				raw[i] = append(raw[i], nil)
				continue
			}
			raw[i] = append(raw[i], &v)
		}
	}

	return Build(headers, raw, opt.ParseDates)
}

// Build turns raw string columns into a typed Table using probe inference.
// raw[i] holds column i; nil entries are missing cells. A numeric cell that
// parses as NaN is stored as missing.
func Build(headers []string, raw [][]*string, parseDates []string) (*table.Table, error) {
	wantDates := make(map[string]bool, len(parseDates))
	for _, n := range parseDates {
		wantDates[n] = true
	}

	cols := make([]*table.Column, len(headers))
	for i, h := range headers {
		typ := probe.InferType(raw[i], wantDates[h])
		c := table.NewColumn(h, typ, len(raw[i]))
		for r, p := range raw[i] {
			if p == nil {
				continue
			}
			switch typ {
			case table.Numeric:
				if f, _ := probe.ParseNumber(*p); !math.IsNaN(f) {
					c.Cells[r] = f
				}
			case table.Datetime:
				ts, _, _ := probe.ParseTimestampLoose(*p)
				c.Cells[r] = ts
			default:
				c.Cells[r] = *p
			}
		}
		cols[i] = c
	}
	return table.New(cols...)
}

// NormalizeHeaders strips a leading BOM, trims, applies hm and names blank
// headers "Unnamed: <i>". Duplicate names are an error.
func NormalizeHeaders(hdr []string, trim bool, hm map[string]string) ([]string, error) {
	out := make([]string, len(hdr))
	seen := make(map[string]int, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if trim && hasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if j, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate header %q in columns %d and %d", h, j+1, i+1)
		}
		seen[h] = i
		out[i] = h
	}
	return out, nil
}

func readErr(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &table.ParseError{Path: name, Line: pe.Line, Err: pe.Err}
	}
	return &table.IOError{Op: "read", Path: name, Err: err}
}

// decodingReader wraps r so that it yields UTF-8 for the given encoding label.
func decodingReader(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == unicode.UTF8 {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// hasEdgeSpace reports whether s has leading or trailing ASCII whitespace,
// so the hot path can skip strings.TrimSpace for clean cells.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
