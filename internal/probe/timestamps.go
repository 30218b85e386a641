package probe

import (
	"strings"
	"time"
)

// tsLayouts are tried in order. Day-first numeric layouts come before
// month-first ones, matching the Turkish and European sources this tool is fed.
var tsLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02-01-2006 15:04",
	"02-01-2006",
}

// ParseTimestampLoose parses s with the first matching layout. Zone-less
// layouts are interpreted as UTC. It returns the layout that matched.
func ParseTimestampLoose(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, "", false
	}
	for _, lay := range tsLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, lay, true
		}
	}
	return time.Time{}, "", false
}

// DetectLayout returns the layout matching the most cells, or "" when no
// cell parses. Ties keep the layout seen first.
func DetectLayout(cells []string) string {
	counts := map[string]int{}
	var order []string
	for _, v := range cells {
		_, lay, ok := ParseTimestampLoose(v)
		if !ok {
			continue
		}
		if counts[lay] == 0 {
			order = append(order, lay)
		}
		counts[lay]++
	}
	best := ""
	bestN := 0
	for _, lay := range order {
		if counts[lay] > bestN {
			best = lay
			bestN = counts[lay]
		}
	}
	return best
}

// FormatTimestamp renders t the way the sink writes datetimes: whole-second
// UTC values as "2006-01-02 15:04:05", anything else as RFC3339Nano.
func FormatTimestamp(t time.Time) string {
	if t.Location() == time.UTC && t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format(time.RFC3339Nano)
}
