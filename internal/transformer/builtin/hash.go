// Package builtin contains small, reusable row transforms used by the cleaning
// stages.
package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowKey is the SHA-256 of a row's canonical encoding. Two rows have the same
// key exactly when every cell is equal under the cleaning pipeline's notion
// of equality.
type RowKey [sha256.Size]byte

// String returns the lowercase hex form (length 64).
func (k RowKey) String() string { return hex.EncodeToString(k[:]) }

// Hash computes RowKeys from positional cells.
//
// Canonicalization rules:
//   - Cells are concatenated in order, each prefixed with a one-byte type tag
//     so that a missing cell, an empty string and the string "\x00" never
//     collide.
//   - Strings are length-prefixed.
//   - float64 uses the shortest round-trip form; -0 is folded into 0.
//   - time.Time is encoded as RFC3339Nano in UTC, so equal instants in
//     different zones are equal.
type Hash struct {
	// TrimSpace trims leading/trailing ASCII whitespace of string cells
	// before hashing.
	TrimSpace bool

	b strings.Builder
}

// Key hashes every cell of row.
func (h *Hash) Key(row []any) RowKey {
	h.b.Reset()
	h.b.Grow(len(row) * 16)
	for _, v := range row {
		h.appendCanonicalValue(v)
	}
	return sha256.Sum256([]byte(h.b.String()))
}

// KeyOf hashes the cells of row at the given positions, in that order.
func (h *Hash) KeyOf(row []any, idx []int) RowKey {
	h.b.Reset()
	for _, i := range idx {
		h.appendCanonicalValue(row[i])
	}
	return sha256.Sum256([]byte(h.b.String()))
}

// Canonical returns the canonical text of a single cell. It is used where a
// cell needs a map key of its own (mode counting, join keys).
func Canonical(v any) string {
	var h Hash
	h.appendCanonicalValue(v)
	return h.b.String()
}

func (h *Hash) appendCanonicalValue(v any) {
	b := &h.b
	switch t := v.(type) {
	case nil:
		b.WriteByte('n')

	case string:
		if h.TrimSpace && HasEdgeSpace(t) {
			t = strings.TrimSpace(t)
		}
		b.WriteByte('s')
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)

	case float64:
		if t == 0 {
			t = 0
		}
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		b.WriteByte(';')

	case time.Time:
		b.WriteByte('t')
		b.WriteString(t.UTC().Format(time.RFC3339Nano))
		b.WriteByte(';')

	case bool:
		if t {
			b.WriteString("b1")
		} else {
			b.WriteString("b0")
		}

	case int:
		b.WriteByte('i')
		b.WriteString(strconv.Itoa(t))
		b.WriteByte(';')
	case int64:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(t, 10))
		b.WriteByte(';')

	default:
		s := fmt.Sprint(t)
		b.WriteByte('x')
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
// It lets hot paths skip strings.TrimSpace for the common clean case.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
