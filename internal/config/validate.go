package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/htmlindex"

	"dataclean/internal/clean"
	"dataclean/internal/storage"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path uses the YAML key names
// ("input.path", "ranges.temperature").
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message) }

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateJob checks j and returns every issue found, errors first in
// field order. Call it after Load so defaults and overrides are applied.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if err := validate.Struct(j); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			add(SeverityError, "", "%v", err)
			return issues
		}
		for _, fe := range ves {
			add(SeverityError, fieldPath(fe), "%s", fieldMessage(fe))
		}
	}

	if j.FillStrategy != "" {
		if _, err := clean.ParseStrategy(j.FillStrategy); err != nil {
			add(SeverityError, "fill_strategy", "must be one of mean, median, mode")
		}
	}

	checkDelimiter := func(path, s string) {
		if _, err := Delimiter(s); err != nil {
			add(SeverityError, path, "%v", err)
		}
	}
	checkEncoding := func(path, s string) {
		if s == "" {
			return
		}
		if _, err := htmlindex.Get(strings.ToLower(strings.TrimSpace(s))); err != nil {
			add(SeverityError, path, "unknown encoding %q", s)
		}
	}

	checkDelimiter("input.delimiter", j.Input.Delimiter)
	checkEncoding("input.encoding", j.Input.Encoding)

	names := make([]string, 0, len(j.Ranges))
	for name := range j.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := j.Ranges[name]
		if b.Min == nil {
			add(SeverityError, "ranges."+name+".min", "is required")
		}
		if b.Max == nil {
			add(SeverityError, "ranges."+name+".max", "is required")
		}
		if b.Min == nil || b.Max == nil {
			continue
		}
		switch lo, hi := *b.Min, *b.Max; {
		case math.IsNaN(lo) || math.IsNaN(hi):
			add(SeverityError, "ranges."+name, "bounds must be numbers")
		case lo > hi:
			add(SeverityError, "ranges."+name, "min %g is greater than max %g", lo, hi)
		}
	}

	if m := j.Merge; m != nil {
		checkDelimiter("merge.delimiter", m.Delimiter)
		checkEncoding("merge.encoding", m.Encoding)
		if m.DatetimeColumn != "" && m.DatetimeColumn != m.RightOn {
			add(SeverityWarning, "merge.datetime_column", "%q is converted but the join key is %q", m.DatetimeColumn, m.RightOn)
		}
	}

	if o := j.Output; o != nil {
		checkDelimiter("output.delimiter", o.Delimiter)
		switch strings.ToLower(filepath.Ext(o.Path)) {
		case ".csv", ".tsv", ".txt", ".xlsx":
		default:
			if o.Path != "" {
				add(SeverityWarning, "output.path", "unrecognised extension; writing delimited text")
			}
		}
	}

	if s := j.Storage; s != nil && s.Kind != "" {
		if !contains(storage.Kinds(), s.Kind) {
			add(SeverityError, "storage.kind", "unknown backend %q (registered: %s)", s.Kind, strings.Join(storage.Kinds(), ", "))
		}
	}

	if j.Output == nil && j.Storage == nil {
		add(SeverityWarning, "output", "no output or storage configured; the cleaned table is discarded")
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Severity == SeverityError && issues[b].Severity != SeverityError
	})
	return issues
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
