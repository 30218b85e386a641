package table

import "fmt"

// IOError reports an unreadable or unwritable file.
type IOError struct {
	Op   string // "open", "read", "create", "write", "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports input that is not well-formed tabular data.
// Line is 1-based; 0 means the problem is not tied to a line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse: %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse: %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnNotFoundError reports a reference to a column the table does not have.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// ConversionError reports a column that cannot be coerced to the logical type
// an operation requires.
type ConversionError struct {
	Column string
	Type   Type
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("column %q cannot be used as %s: %s", e.Column, e.Type, e.Reason)
}

// UnsupportedStrategyError reports an unknown imputation strategy name.
type UnsupportedStrategyError struct {
	Strategy string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("unsupported fill strategy %q (want mean, median or mode)", e.Strategy)
}
