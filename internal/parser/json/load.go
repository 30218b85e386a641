// Package json loads JSON record files into a table.Table.
//
// Accepted shapes:
//   - a root array of objects
//   - a root object whose first array-of-objects field holds the records
//     (envelope); other fields are skipped
//   - a single root object (one record)
//   - any of the above followed by further objects (JSON Lines)
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	csvparser "dataclean/internal/parser/csv"
	"dataclean/internal/probe"
	"dataclean/internal/table"
)

// Options controls key mapping and cell interpretation.
type Options struct {
	// HeaderMap renames source keys before use.
	HeaderMap     map[string]string
	MissingTokens []string
	ParseDates    []string
	// ArrayJoinSeparator flattens arrays of scalars. Empty means ",".
	ArrayJoinSeparator string
}

// record keeps keys in document order; encoding/json maps do not.
type record struct {
	keys []string
	vals map[string]any
}

// Load reads the JSON file at path. Columns are the union of record keys in
// first-seen order; a key absent from a record is a missing cell. Scalars
// are inferred exactly like CSV cells. Nested objects and mixed arrays are
// kept as compact JSON text.
//
// Errors:
//   - *table.IOError when the file cannot be opened.
//   - *table.ParseError for malformed JSON; Line is the 1-based record number.
func Load(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &table.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return Read(f, path, opt)
}

// Read parses JSON records from r. name is used only in error messages.
func Read(r io.Reader, name string, opt Options) (*table.Table, error) {
	recs, err := readRecords(r)
	if err != nil {
		var pe *recordError
		if errors.As(err, &pe) {
			return nil, &table.ParseError{Path: name, Line: pe.n, Err: pe.err}
		}
		return nil, &table.ParseError{Path: name, Err: err}
	}

	sep := opt.ArrayJoinSeparator
	if sep == "" {
		sep = ","
	}
	missing := probe.MissingSet(opt.MissingTokens)

	var keys []string
	index := make(map[string]int)
	for _, rec := range recs {
		for _, k := range rec.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(keys)
				keys = append(keys, k)
			}
		}
	}

	headers, err := csvparser.NormalizeHeaders(keys, true, opt.HeaderMap)
	if err != nil {
		return nil, &table.ParseError{Path: name, Err: err}
	}

	raw := make([][]*string, len(keys))
	for i := range raw {
		raw[i] = make([]*string, len(recs))
	}
	for r, rec := range recs {
		for _, k := range rec.keys {
			s, ok := cellText(rec.vals[k], sep)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if probe.IsMissing(s, missing) {
				continue
			}
			raw[index[k]][r] = &s
		}
	}

	return csvparser.Build(headers, raw, opt.ParseDates)
}

// cellText renders a decoded JSON value as cell text. ok is false for null.
func cellText(v any, sep string) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		ss := make([]string, 0, len(t))
		for _, it := range t {
			switch s := it.(type) {
			case nil:
				continue
			case string:
				ss = append(ss, s)
			case json.Number:
				ss = append(ss, s.String())
			default:
				return compact(v), true
			}
		}
		return strings.Join(ss, sep), true
	default:
		return compact(v), true
	}
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

type recordError struct {
	n   int
	err error
}

func (e *recordError) Error() string { return fmt.Sprintf("record %d: %v", e.n, e.err) }
func (e *recordError) Unwrap() error { return e.err }

func readRecords(r io.Reader) ([]record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var recs []record
	fail := func(err error) error { return &recordError{n: len(recs) + 1, err: err} }

	for first := true; ; first = false {
		tok, err := dec.Token()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, fail(err)
		}

		d, ok := tok.(json.Delim)
		switch {
		case ok && d == '[' && first:
			if err := readArrayOfObjects(dec, &recs); err != nil {
				return nil, fail(err)
			}
			if err := expectDelim(dec, ']'); err != nil {
				return nil, fail(err)
			}

		case ok && d == '{' && first:
			// Root object: envelope or single record.
			rec, streamed, err := readEnvelopeOrSingle(dec, &recs)
			if err != nil {
				return nil, fail(err)
			}
			if !streamed {
				recs = append(recs, rec)
			}

		case ok && d == '{':
			// Trailing JSON Lines objects.
			rec, err := readObject(dec)
			if err != nil {
				return nil, fail(err)
			}
			recs = append(recs, rec)

		default:
			return nil, fail(fmt.Errorf("unexpected token %v (want object or array)", tok))
		}
	}
}

// readArrayOfObjects reads elements after '[' until the closing ']' (not
// consumed). null elements are skipped.
func readArrayOfObjects(dec *json.Decoder, recs *[]record) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if tok == nil {
			continue
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("array element is not an object (got %v)", tok)
		}
		rec, err := readObject(dec)
		if err != nil {
			return err
		}
		*recs = append(*recs, rec)
	}
	return nil
}

// readEnvelopeOrSingle walks a root object after '{'. The first field
// holding an array of objects is appended to recs and the remaining fields
// are skipped. Otherwise the object itself is returned as a record.
func readEnvelopeOrSingle(dec *json.Decoder, recs *[]record) (record, bool, error) {
	rec := record{vals: make(map[string]any)}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return record{}, false, err
		}
		tok, err := dec.Token()
		if err != nil {
			return record{}, false, err
		}
		if d, ok := tok.(json.Delim); ok && d == '[' {
			objs, vals, err := readArray(dec)
			if err != nil {
				return record{}, false, err
			}
			if objs == nil {
				rec.set(key, vals)
				continue
			}
			*recs = append(*recs, objs...)
			for dec.More() {
				if _, err := dec.Token(); err != nil {
					return record{}, true, err
				}
				if err := skipNextValue(dec); err != nil {
					return record{}, true, err
				}
			}
			return record{}, true, expectDelim(dec, '}')
		}
		v, err := materialize(dec, tok)
		if err != nil {
			return record{}, false, err
		}
		rec.set(key, v)
	}
	return rec, false, expectDelim(dec, '}')
}

// readArray reads an array after '[' including the closing ']'. objs is
// non-nil only when the array holds at least one object and nothing but
// objects and nulls; vals always holds the plain decoded elements.
func readArray(dec *json.Decoder) (objs []record, vals []any, err error) {
	vals = []any{}
	onlyObjects := true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			rec, err := readObject(dec)
			if err != nil {
				return nil, nil, err
			}
			objs = append(objs, rec)
			vals = append(vals, rec.vals)
			continue
		}
		if tok != nil {
			onlyObjects = false
		}
		v, err := materialize(dec, tok)
		if err != nil {
			return nil, nil, err
		}
		vals = append(vals, v)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	if !onlyObjects {
		objs = nil
	}
	return objs, vals, nil
}

// readObject reads an object after '{' including the closing '}'.
func readObject(dec *json.Decoder) (record, error) {
	rec := record{vals: make(map[string]any)}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return record{}, err
		}
		tok, err := dec.Token()
		if err != nil {
			return record{}, err
		}
		v, err := materialize(dec, tok)
		if err != nil {
			return record{}, err
		}
		rec.set(key, v)
	}
	return rec, expectDelim(dec, '}')
}

func (r *record) set(k string, v any) {
	if _, dup := r.vals[k]; !dup {
		r.keys = append(r.keys, k)
	}
	r.vals[k] = v
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	k, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("object key is not a string (got %T)", tok)
	}
	return k, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func skipNextValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	_, err = materialize(dec, tok)
	return err
}

// materialize builds the Go value whose first token has already been read.
func materialize(dec *json.Decoder, tok any) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := make(map[string]any)
		for dec.More() {
			k, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			vt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if m[k], err = materialize(dec, vt); err != nil {
				return nil, err
			}
		}
		return m, expectDelim(dec, '}')
	case '[':
		arr := []any{}
		for dec.More() {
			vt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := materialize(dec, vt)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, expectDelim(dec, ']')
	}
	return nil, fmt.Errorf("unexpected delimiter %q", d)
}
