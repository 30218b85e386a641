// Package clean implements the cleaning stages and the composed Clean
// pipeline. Every stage takes a *table.Table and returns a new one; inputs
// are never modified.
package clean

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"dataclean/internal/metrics"
	csvparser "dataclean/internal/parser/csv"
	jsonparser "dataclean/internal/parser/json"
	xlsxparser "dataclean/internal/parser/xlsx"
	"dataclean/internal/table"
)

// Stage names, used in StageError, logs and metrics labels.
const (
	StageLoad            = "load"
	StageConvertDatetime = "convert_datetime"
	StageAuditMissing    = "audit_missing"
	StagePruneSparse     = "prune_sparse"
	StageImpute          = "impute"
	StageDropDuplicates  = "drop_duplicates"
	StageFilterRange     = "filter_range"
	StageSort            = "sort"
	StageMerge           = "merge"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// LoadOptions configures Load. Delimiter and Encoding apply to delimited
// text only; Sheet to workbooks only.
type LoadOptions struct {
	Delimiter     rune
	Encoding      string
	MissingTokens []string
	Sheet         string
	ParseDates    []string
}

// Load reads path into a Table, choosing the reader by extension: .xlsx is
// read as a workbook, .json/.jsonl/.ndjson as JSON records, anything else as
// delimited text.
func Load(path string, opt LoadOptions) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return xlsxparser.Load(path, xlsxparser.Options{
			Sheet:         opt.Sheet,
			MissingTokens: opt.MissingTokens,
			ParseDates:    opt.ParseDates,
		})
	case ".json", ".jsonl", ".ndjson":
		return jsonparser.Load(path, jsonparser.Options{
			MissingTokens: opt.MissingTokens,
			ParseDates:    opt.ParseDates,
		})
	}
	return csvparser.Load(path, csvparser.Options{
		Comma:         opt.Delimiter,
		Encoding:      opt.Encoding,
		MissingTokens: opt.MissingTokens,
		ParseDates:    opt.ParseDates,
	})
}

// Options configures Clean.
type Options struct {
	DatetimeColumn string
	FillStrategy   string
	// Threshold enables sparse-column pruning when non-nil.
	Threshold *float64
	Load      LoadOptions
	Logger    *slog.Logger
}

// Report summarises what Clean did.
type Report struct {
	Rows, Cols    int // as loaded
	Audit         Audit
	Dropped       []string
	Impute        ImputeReport
	DuplicateRows int
	FinalRows     int
	FinalCols     int
}

// Clean runs load, datetime conversion, missing-value audit, optional
// pruning, imputation and de-duplication, in that order. The first failing
// stage aborts the run with a *StageError. Clean never writes files.
func Clean(path string, opt Options) (*table.Table, *Report, error) {
	if opt.Threshold != nil && (*opt.Threshold < 0 || *opt.Threshold > 1) {
		return nil, nil, &StageError{
			Stage: StagePruneSparse,
			Err:   fmt.Errorf("missing ratio threshold %g outside [0,1]", *opt.Threshold),
		}
	}

	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	rep := &Report{}

	var t *table.Table
	err := Track(StageLoad, func() (err error) {
		t, err = Load(path, opt.Load)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	rep.Rows, rep.Cols = t.NumRows(), t.NumCols()
	metrics.RecordRows("loaded", rep.Rows)
	log.Info("loaded", "path", path, "rows", rep.Rows, "cols", rep.Cols)

	if err := Track(StageConvertDatetime, func() (err error) {
		t, err = ConvertColumnToDatetime(t, opt.DatetimeColumn)
		return err
	}); err != nil {
		return nil, nil, err
	}
	log.Info("converted to datetime", "column", opt.DatetimeColumn)

	_ = Track(StageAuditMissing, func() error {
		rep.Audit = AuditMissingValues(t)
		return nil
	})
	for _, c := range rep.Audit {
		if c.Missing > 0 {
			log.Info("missing values", "column", c.Name, "missing", c.Missing, "ratio", c.Ratio)
		}
	}

	if opt.Threshold != nil {
		_ = Track(StagePruneSparse, func() error {
			t, rep.Dropped = PruneSparseColumns(t, *opt.Threshold)
			return nil
		})
		if len(rep.Dropped) > 0 {
			log.Info("dropped sparse columns", "threshold", *opt.Threshold, "columns", rep.Dropped)
		}
	}

	if err := Track(StageImpute, func() (err error) {
		t, rep.Impute, err = ImputeMissing(t, opt.FillStrategy)
		return err
	}); err != nil {
		return nil, nil, err
	}
	for _, name := range rep.Impute.Skipped {
		log.Warn("column has no values to impute from; left missing", "column", name, "strategy", rep.Impute.Strategy)
	}
	log.Info("imputed", "strategy", rep.Impute.Strategy, "cells", rep.Impute.TotalFilled())

	_ = Track(StageDropDuplicates, func() error {
		t, rep.DuplicateRows = DropDuplicateRows(t)
		return nil
	})
	metrics.RecordRows("duplicates", rep.DuplicateRows)
	log.Info("dropped duplicate rows", "count", rep.DuplicateRows)

	rep.FinalRows, rep.FinalCols = t.NumRows(), t.NumCols()
	return t, rep, nil
}

// Track runs fn as the named stage: it records the stage metrics and wraps a
// failure in a *StageError.
func Track(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordStage(stage, status, time.Since(start))
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}
