// Package probe implements column type inference and loose value parsing for
// raw tabular text.
//
// The probe package is responsible for:
//   - Deciding a column's logical type from its raw string cells
//   - Parsing numbers and timestamps the way the loaders and the datetime
//     conversion stage expect
//   - Picking the dominant timestamp layout for a column
//
// All inference is best-effort: unparseable cells never fail a probe, they
// only demote the column to a less specific type.
package probe

import (
	"strconv"
	"strings"

	"dataclean/internal/table"
)

// InferType infers the logical type of a raw column. Missing cells must
// already be nil-ed out by the caller (see IsMissing) and are ignored.
//
// Preference order matches the loader contract:
//   - every present cell parses as a number → Numeric
//   - every present cell parses as a timestamp and parseDates is set → Datetime
//   - otherwise → Categorical
//
// A column with no present cells is Categorical.
func InferType(cells []*string, parseDates bool) table.Type {
	var seen bool
	allNum := true
	allTS := parseDates

	for _, p := range cells {
		if p == nil {
			continue
		}
		seen = true
		v := *p
		if allNum {
			if _, ok := ParseNumber(v); !ok {
				allNum = false
			}
		}
		if allTS {
			if _, _, ok := ParseTimestampLoose(v); !ok {
				allTS = false
			}
		}
		if !allNum && !allTS {
			break
		}
	}

	switch {
	case !seen:
		return table.Categorical
	case allNum:
		return table.Numeric
	case allTS:
		return table.Datetime
	default:
		return table.Categorical
	}
}

// ParseNumber parses a decimal or scientific number. Thousands separators are
// not accepted. NaN spellings outside the missing tokens ("NAN", "+nan")
// parse as math.NaN(); callers store those as missing cells.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// DefaultMissingTokens are read as missing when no tokens are configured.
var DefaultMissingTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// MissingSet builds a lookup set from tokens. A nil slice yields the defaults.
func MissingSet(tokens []string) map[string]struct{} {
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	out := make(map[string]struct{}, len(tokens)+1)
	out[""] = struct{}{}
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

// IsMissing reports whether v (already trimmed) is a missing-value token.
func IsMissing(v string, set map[string]struct{}) bool {
	_, ok := set[v]
	return ok
}
